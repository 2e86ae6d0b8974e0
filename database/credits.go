package database

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// CreditScale — сколько единиц Credits в одном праве использования
const CreditScale = 10000

// Credits — баланс в десятитысячных долях права. Целое число единиц,
// поэтому сумма дробных начислений всегда точная.
type Credits int64

var ErrInvalidDecimal = errors.New("invalid decimal amount")

// Rights — целое число прав как Credits
func Rights(n int64) Credits {
	return Credits(n * CreditScale)
}

func ValidateAmount(amount Credits) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String печатает кредиты в правах без хвостовых нулей: 25, 0.5, 1.2345
func (c Credits) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign, v = "-", -v
	}
	whole, frac := v/CreditScale, v%CreditScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	digits := strings.TrimRight(strconv.FormatInt(frac+CreditScale, 10)[1:], "0")
	return sign + strconv.FormatInt(whole, 10) + "." + digits
}

// ParseDecimal разбирает "500", "12.5" или "12,5" без потери точности
func ParseDecimal(s string) (*big.Rat, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.ContainsAny(s, "/eE") {
		return nil, ErrInvalidDecimal
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, ErrInvalidDecimal
	}
	return r, nil
}

// ParseCredits разбирает число прав; больше четырёх знаков после точки — ошибка
func ParseCredits(s string) (Credits, error) {
	r, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	c, exact := CreditsFromRat(r)
	if !exact {
		return 0, ErrInvalidDecimal
	}
	return c, nil
}

// CreditsFromRat округляет r прав до единицы Credits (половина — от нуля);
// exact=false, если пришлось округлить или значение не помещается в int64
func CreditsFromRat(r *big.Rat) (c Credits, exact bool) {
	scaled := new(big.Rat).Mul(r, big.NewRat(CreditScale, 1))
	if scaled.IsInt() {
		if !scaled.Num().IsInt64() {
			return 0, false
		}
		return Credits(scaled.Num().Int64()), true
	}

	num, den := scaled.Num(), scaled.Denom()
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Lsh(new(big.Int).Abs(m), 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(int64(num.Sign())))
	}
	if !q.IsInt64() {
		return 0, false
	}
	return Credits(q.Int64()), false
}

// CreditsForPayment переводит сумму в валюте в права по цене одного права
func CreditsForPayment(amount, unitPrice *big.Rat) Credits {
	if unitPrice.Sign() <= 0 {
		return 0
	}
	c, _ := CreditsFromRat(new(big.Rat).Quo(amount, unitPrice))
	return c
}
