package service

import (
	"crypto/rand"
	"sort"
	"time"
)

// Reference code prefixes stored on wallet and trade transactions.
const (
	RefPrefixDeposit  = "DEP"
	RefPrefixWithdraw = "WDR"
	RefPrefixTrade    = "TRD"

	// RefReferralBonus marks the deposit that pays a referral bonus.
	RefReferralBonus = "REFERRAL_BONUS"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomCode returns n characters from codeAlphabet. Ambiguous characters (0/O, 1/I)
// are left out so codes can be read back over the phone.
func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// newReferenceCode returns e.g. "DEP-7KQ2M9XA".
func newReferenceCode(prefix string) string {
	return prefix + "-" + randomCode(8)
}

// newReferralCode returns an 8 character referral code.
func newReferralCode() string {
	return randomCode(8)
}

// nowUTC is the clock used for stored timestamps.
func nowUTC() time.Time {
	return time.Now().UTC()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
