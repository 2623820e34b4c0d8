// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// MaxDisplayNameLength is counted in characters, not bytes
const MaxDisplayNameLength = 50

var (
	adjectives = []string{
		"sunny", "brave", "quiet", "lucky", "swift", "mellow", "bright", "curious",
		"gentle", "jolly", "nimble", "plucky", "snappy", "cosmic", "dreamy", "zesty",
	}
	animals = []string{
		"otter", "panda", "fox", "koala", "heron", "lynx", "gecko", "puffin",
		"badger", "marmot", "walrus", "tapir", "quokka", "bison", "ibis", "yak",
	}
)

// GenerateDisplayName returns a friendly random name like "swift-otter-42"
func GenerateDisplayName() string {
	return fmt.Sprintf("%s-%s-%02d", pick(adjectives), pick(animals), randInt(100))
}

// DisplayNameTooLong reports whether name exceeds MaxDisplayNameLength
func DisplayNameTooLong(name string) bool {
	return utf8.RuneCountInString(name) > MaxDisplayNameLength
}

// ClampDisplayName trims space and cuts name to MaxDisplayNameLength
// characters, never splitting a character
func ClampDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if !DisplayNameTooLong(name) {
		return name
	}
	n := 0
	for i := range name {
		if n == MaxDisplayNameLength {
			return strings.TrimSpace(name[:i])
		}
		n++
	}
	return name
}

func pick(words []string) string {
	return words[randInt(len(words))]
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
