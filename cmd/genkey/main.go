package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/saturnino-fabrica-de-software/livegate/internal/token"
)

// genkey prints fresh secrets in env file format:
//
//	genkey            TOKEN_SECRET and WEBHOOK_SECRET
//	genkey -length 64 longer secrets
func main() {
	length := flag.Int("length", token.MinSecretLength, "secret length")
	flag.Parse()

	for _, name := range []string{"TOKEN_SECRET", "WEBHOOK_SECRET"} {
		secret, err := token.GenerateSecret(*length)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Printf("%s=%s\n", name, secret)
	}
}
