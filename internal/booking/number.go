package booking

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/venue-booking/internal/model"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Number prefixes per booking kind.
const (
	PrefixReservation = "RSV"
	PrefixRoomBooking = "RB"
	PrefixOrder       = "ORD"
)

// NewNumber builds a human readable, collision resistant identifier: the
// prefix, the millisecond timestamp in base 36 and six random characters.
func NewNumber(prefix string, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(numberAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func numberPrefix(k model.BookingKind) string {
	if k == model.BookingRoom {
		return PrefixRoomBooking
	}
	return PrefixReservation
}
