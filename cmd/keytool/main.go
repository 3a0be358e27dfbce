package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"gitlab.com/SmartLease/leaserouter/internal/wallet"
)

// keytool seals a landlord private key into the encrypted key file used by
// the auto-renewal sweep. The key is read from stdin so it never appears
// in shell history or process listings.
func main() {
	out := flag.String("out", "landlord.key", "output path for the sealed key file")
	verify := flag.Bool("verify", false, "open an existing key file instead of sealing")
	flag.Parse()

	passphrase := os.Getenv("RENEWAL_KEY_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprintln(os.Stderr, "RENEWAL_KEY_PASSPHRASE is not set")
		os.Exit(1)
	}

	if *verify {
		data, err := os.ReadFile(*out)
		if err != nil {
			fatal(err)
		}
		key, err := wallet.OpenKey(passphrase, data)
		if err != nil {
			fatal(err)
		}
		w, err := wallet.NewWalletFromPrivateKeyStr(key)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("key file %s holds the key for %s\n", *out, w.Address().Hex())
		return
	}

	fmt.Fprint(os.Stderr, "private key (hex): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal(err)
	}
	key := strings.TrimSpace(line)

	w, err := wallet.NewWalletFromPrivateKeyStr(key)
	if err != nil {
		fatal(err)
	}

	sealed, err := wallet.SealKey(passphrase, key)
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(*out, sealed, 0o600); err != nil {
		fatal(err)
	}
	fmt.Printf("sealed key for %s into %s\n", w.Address().Hex(), *out)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}
