package notifier

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermanent marks a delivery the provider rejected for good. Retrying it cannot succeed.
var ErrPermanent = errors.New("permanent delivery failure")

// ResolveDriver returns the configured driver, or picks one from the available credentials.
func ResolveDriver(driver, sendGridAPIKey string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "":
		if sendGridAPIKey != "" {
			return DriverSendGrid, nil
		}

		return DriverLog, nil
	case DriverLog, DriverAMQP:
		return d, nil
	case DriverSendGrid:
		if sendGridAPIKey == "" {
			return "", fmt.Errorf("notifier driver %q requires notifier.sendgrid.api_key", d)
		}

		return d, nil
	default:
		return "", fmt.Errorf("unknown notifier driver %q", driver)
	}
}
