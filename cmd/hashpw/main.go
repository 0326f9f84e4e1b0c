// Command hashpw prints the bcrypt hash to put in CATALOG_AUTH_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ProductStore/internal/auth"
)

func main() {
	password := strings.Join(os.Args[1:], " ")
	if password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "read password:", err)
			os.Exit(1)
		}
		password = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "empty password")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
