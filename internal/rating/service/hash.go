package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/railzwaylabs/ratebook/internal/calculator"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
)

// inputHash is the SHA-256 of the snapshot's JSON. encoding/json writes map
// keys in sorted order, which makes the encoding canonical.
func inputHash(in ratingdomain.InputSnapshot) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeRequest gives equivalent requests the same shape: trimmed codes,
// the default payment mode spelled out and blank factor selections dropped.
func normalizeRequest(req ratingdomain.RateRequest) ratingdomain.RateRequest {
	out := ratingdomain.RateRequest{
		PaymentMode:      strings.ToLower(strings.TrimSpace(req.PaymentMode)),
		RateTableVersion: req.RateTableVersion,
		Carrier:          strings.TrimSpace(req.Carrier),
		AsOf:             strings.TrimSpace(req.AsOf),
		UserID:           strings.TrimSpace(req.UserID),
	}
	if out.PaymentMode == "" {
		out.PaymentMode = string(calculator.DefaultPaymentMode)
	}
	if len(req.FactorSelections) > 0 {
		out.FactorSelections = make(map[string]string, len(req.FactorSelections))
		for code, value := range req.FactorSelections {
			code, value = strings.TrimSpace(code), strings.TrimSpace(value)
			if code == "" || value == "" {
				continue
			}
			out.FactorSelections[code] = value
		}
	}
	if len(req.RiderSelections) > 0 {
		out.RiderSelections = make(map[string]bool, len(req.RiderSelections))
		for code, on := range req.RiderSelections {
			if code = strings.TrimSpace(code); code != "" {
				out.RiderSelections[code] = on
			}
		}
	}
	return out
}
