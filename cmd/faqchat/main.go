// faqchat is a terminal client for the Black Belt Prep FAQ chatbot.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
