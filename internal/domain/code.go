package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CodePrefix names a human code family.
type CodePrefix string

const (
	PrefixTM       CodePrefix = "TM"
	PrefixEnquiry  CodePrefix = "ENQ"
	PrefixFabric   CodePrefix = "FAB"
	PrefixPOD      CodePrefix = "POD"
	PrefixBulk     CodePrefix = "BULK"
	PrefixSouvenir CodePrefix = "SOU"
	PrefixBoutique CodePrefix = "BOU"
	PrefixDesign   CodePrefix = "DES"
)

var knownPrefixes = map[CodePrefix]bool{
	PrefixTM:       true,
	PrefixEnquiry:  true,
	PrefixFabric:   true,
	PrefixPOD:      true,
	PrefixBulk:     true,
	PrefixSouvenir: true,
	PrefixBoutique: true,
	PrefixDesign:   true,
}

func (p CodePrefix) Valid() bool {
	return knownPrefixes[p]
}

// PrefixFor returns the code family an order type is issued from.
func PrefixFor(t OrderType) CodePrefix {
	switch t {
	case OrderTypeBulk:
		return PrefixBulk
	case OrderTypePOD:
		return PrefixPOD
	case OrderTypeBoutique:
		return PrefixBoutique
	case OrderTypeFabric:
		return PrefixFabric
	case OrderTypeSouvenir:
		return PrefixSouvenir
	case OrderTypeCustomRequest:
		return PrefixEnquiry
	default:
		return PrefixTM
	}
}

// HumanCode is the PREFIX-MMYY-DDNNNN identifier customers and staff exchange.
type HumanCode struct {
	Prefix   CodePrefix
	Date     time.Time
	Sequence int
}

var codePattern = regexp.MustCompile(`^([A-Z]{2,4})-(\d{2})(\d{2})-(\d{2})(\d{4,})$`)

func NewHumanCode(prefix CodePrefix, date time.Time, sequence int) HumanCode {
	return HumanCode{Prefix: prefix, Date: BucketDay(date), Sequence: sequence}
}

func (c HumanCode) String() string {
	return fmt.Sprintf("%s-%02d%02d-%02d%04d",
		c.Prefix, int(c.Date.Month()), c.Date.Year()%100, c.Date.Day(), c.Sequence)
}

// ParseCode validates a code and splits it into its parts. Input is
// normalised to upper case since codes are often read out over the phone.
func ParseCode(raw string) (HumanCode, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	m := codePattern.FindStringSubmatch(s)
	if m == nil {
		return HumanCode{}, NewInvalidCodeFormatError(raw)
	}

	prefix := CodePrefix(m[1])
	if !prefix.Valid() {
		return HumanCode{}, NewInvalidCodeFormatError(raw)
	}

	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	seq, err := strconv.Atoi(m[5])
	if err != nil || seq < 1 {
		return HumanCode{}, NewInvalidCodeFormatError(raw)
	}

	date := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises out-of-range values; a round trip catches 31/02 and month 13.
	if month < 1 || month > 12 || day < 1 || date.Day() != day || int(date.Month()) != month {
		return HumanCode{}, NewInvalidCodeFormatError(raw)
	}

	return HumanCode{Prefix: prefix, Date: date, Sequence: seq}, nil
}

// BucketDay truncates a timestamp to the UTC calendar day used for sequencing.
func BucketDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
