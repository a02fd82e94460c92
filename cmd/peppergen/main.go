// Command peppergen prints a freshly generated pepper suitable for the
// PASSWORD_PEPPER environment variable. Rotating the pepper invalidates
// every stored credential record, so generate once and keep it safe.
package main

import (
	"fmt"

	"passguard/internal/infra/auth"
)

func main() {
	fmt.Println(auth.GeneratePepper())
}
