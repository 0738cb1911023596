package common

import (
	"crypto/rand"
	"math/big"
)

var allSeq = []rune("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func Random(n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = allSeq[RandomInt(len(allSeq))]
	}
	return string(runes)
}

func RandomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
