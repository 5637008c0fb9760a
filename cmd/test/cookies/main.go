package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"go-outreach-automation/internal/browser"
)

func main() {
	path := flag.String("path", "../.cookies/x.json", "cookie file")
	flag.Parse()

	fmt.Println("🍪 Testing cookie loading...")

	cookies, err := browser.LoadCookies(*path)
	if err != nil {
		log.Fatalf("Failed to load cookies: %v", err)
	}

	fmt.Printf("✅ Loaded %d cookies\n", len(cookies))

	for _, c := range cookies {
		if c.Name != "auth_token" {
			continue
		}
		fmt.Printf("\nX session cookie:\n")
		fmt.Printf("Domain: %s\n", c.Domain)
		fmt.Printf("Secure: %t\n", c.Secure)
		if c.Expires > 0 {
			exp := time.Unix(int64(c.Expires), 0)
			fmt.Printf("Expires: %s (in %s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Hour))
		}
		return
	}
	fmt.Println("⚠️ No auth_token cookie, the X session is not logged in. Run `relayer login`.")
}
