package points

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// GenerateTransactionCode returns a short human-facing code for a ledger
// entry: the UTC date plus six random hex characters.
func GenerateTransactionCode() (string, error) {
	datePart := time.Now().UTC().Format("20060102")

	r := make([]byte, 3)
	if _, err := rand.Read(r); err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s", datePart, randomPart), nil
}
