package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
)

const maxUploadBytes = 10 << 20

var decoder = newDecoder()

// newDecoder accepts dates either as 2006-01-02 or RFC 3339. An empty value
// decodes to the zero time.
func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.DateOnly, raw); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", raw)
		}
		return t, nil
	}, time.Time{})
	return d
}

// decodeForm parses a urlencoded or multipart body into dst.
func decodeForm(r *http.Request, dst any) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	if err := decoder.Decode(dst, r.Form); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}
	return nil
}

type donationForm struct {
	Title       string    `form:"title"`
	Description string    `form:"description"`
	Quantity    string    `form:"quantity"`
	ExpiryDate  time.Time `form:"expiry_date"`
	DonorID     string    `form:"donor_id"`
	DonorName   string    `form:"donor_name"`
	ImageRef    string    `form:"image_ref"`
}

type acceptForm struct {
	NGOID string `form:"ngo_id"`
}

type pickupForm struct {
	PickupDate      time.Time `form:"pickup_date"`
	PickupTimeRange string    `form:"pickup_time_range"`
	PickupLocation  string    `form:"pickup_location"`
}

type approvalForm struct {
	Approved *bool `form:"approved"`
}

type statusForm struct {
	Status string `form:"status"`
}

type notificationForm struct {
	UserID  string `form:"user_id"`
	Title   string `form:"title"`
	Message string `form:"message"`
}
