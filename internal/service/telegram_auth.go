package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stickman_shake/internal/telegram"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

const (
	initDataMaxAge  = time.Hour
	initDataMaxSkew = 5 * time.Minute
)

// ValidateTelegramInitData verifies Telegram WebApp init_data HMAC and checks
// that auth_date is recent to mitigate replay attacks.
func ValidateTelegramInitData(initData, botToken string, now time.Time) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrInvalidInitData
	}
	values.Del("hash")

	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	secret := sha256.Sum256([]byte(botToken))
	h := hmac.New(sha256.New, secret[:])
	h.Write([]byte(strings.Join(dataCheck, "\n")))

	provided, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(h.Sum(nil), provided) {
		return nil, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > initDataMaxAge || age < -initDataMaxSkew {
		return nil, ErrInvalidInitData
	}

	return values, nil
}

// VerifyTelegramUser validates init data and returns the Telegram user it was issued for.
func VerifyTelegramUser(initData, botToken string, now time.Time) (*telegram.WebAppUser, error) {
	if _, err := ValidateTelegramInitData(initData, botToken, now); err != nil {
		return nil, err
	}
	u, err := telegram.ParseUser(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	return u, nil
}
