package ipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

const retryDelay = 200 * time.Millisecond

type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds the geolocation adapter. timeout bounds each attempt.
func NewClient(baseURL string, timeout time.Duration, logg *logger.Logger) *Client {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logg:    logg,
	}
}

// Resolve never fails: any lookup error yields the fixed fallback snapshot.
func (c *Client) Resolve(ctx context.Context, clientAddress string) entity.GeoInfo {
	geo, err := c.Lookup(ctx, clientAddress)
	if err != nil {
		c.logg.Error(c.logg.WithField(ctx, "client_ip", clientAddress), "ip lookup failed, using fallback", err)
		return entity.FallbackGeoInfo()
	}
	return geo
}

// Lookup makes one attempt plus a single retry on transient failures.
func (c *Client) Lookup(ctx context.Context, clientAddress string) (entity.GeoInfo, error) {
	var data lookupResponse

	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.fetch(ctx, clientAddress)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return err
			}
			return retry.RetryableError(err)
		}
		data = *resp
		return nil
	})
	if err != nil {
		return entity.GeoInfo{}, err
	}

	// Private and reserved addresses come back as "fail" with no location fields.
	if strings.EqualFold(data.Status, "fail") {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"client_ip": clientAddress,
			"reason":    data.Message,
		}), "ip lookup found no location, using defaults")
	}
	return toGeoInfo(clientAddress, data), nil
}

func (c *Client) fetch(ctx context.Context, clientAddress string) (*lookupResponse, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(clientAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &permanentError{err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip-api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("ip-api status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &permanentError{err: fmt.Errorf("ip-api status %d", resp.StatusCode)}
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &permanentError{err: fmt.Errorf("decode ip-api response: %w", err)}
	}
	return &data, nil
}

func toGeoInfo(clientAddress string, data lookupResponse) entity.GeoInfo {
	countryCode := data.CountryCode
	if countryCode == "" {
		countryCode = entity.DefaultCountryCode
	}
	return entity.GeoInfo{
		IP:          clientAddress,
		Country:     orDefault(data.Country, entity.DefaultCountry),
		CountryCode: countryCode,
		Region:      orDefault(data.Region, entity.UnknownValue),
		City:        orDefault(data.City, entity.UnknownValue),
		Timezone:    orDefault(data.Timezone, entity.DefaultTimezone),
		Flag:        entity.FlagURL(countryCode),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// permanentError marks failures a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
