package model

import "strconv"

// TierID identifies a subscription tier; it is passed to the escrow program as plan id.
type TierID int

func (t TierID) String() string {
	return strconv.Itoa(int(t))
}
