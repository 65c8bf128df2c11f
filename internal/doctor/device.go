package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/internal/transport"
)

// DeviceCheck opens one session to the device and decodes its document.
// It bypasses the cache and the lock.
type DeviceCheck struct {
	Host       string
	Credential *secret.Credential
	Fetcher    transport.Fetcher
}

func (c *DeviceCheck) Name() string     { return "device_" + c.Host }
func (c *DeviceCheck) Category() string { return "DEVICE" }

func (c *DeviceCheck) Run(ctx context.Context) CheckResult {
	start := time.Now()
	doc, err := c.Fetcher.FetchAll(ctx, transport.Request{Host: c.Host, Credential: c.Credential})
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%s: %s", c.Host, errors.OneLine(err)),
		}
	}

	sections := 0
	if m, ok := doc.(map[string]any); ok {
		sections = len(m)
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s answered in %s with %d section%s", c.Host, time.Since(start).Round(time.Millisecond), sections, pluralize(sections)),
	}
}

func (c *DeviceCheck) Fix() error {
	return nil
}
