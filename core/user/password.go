package user

import (
	"crypto/rand"
	"math/big"
)

const (
	pwdLower   = "abcdefghijkmnopqrstuvwxyz"
	pwdUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdDigits  = "23456789"
	pwdSpecial = "@#$%&*!?"
	genPwdLen  = 12
)

// GeneratePassword returns a random password that satisfies the password policy.
func GeneratePassword() (string, error) {
	sets := []string{pwdLower, pwdUpper, pwdDigits, pwdSpecial}
	all := pwdLower + pwdUpper + pwdDigits + pwdSpecial

	pwd := make([]byte, 0, genPwdLen)
	for _, set := range sets {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}
	for len(pwd) < genPwdLen {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}

	// shuffle so that the required sets are not always up front
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j.Int64()] = pwd[j.Int64()], pwd[i]
	}
	return string(pwd), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
