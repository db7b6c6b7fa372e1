package awsec2

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/ec2keeper/ec2keeper/internal/infra/metrics"
)

// ThrottledError marks a control plane rejection that a later attempt may
// succeed on.
type ThrottledError struct {
	cause error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("control plane throttled: %v", e.cause)
}

func (e *ThrottledError) Unwrap() error {
	return e.cause
}

func (e *ThrottledError) IsTransient() {}

// UnavailableError marks a transport-level failure (timeout, connection
// reset) where the control plane verdict is unknown.
type UnavailableError struct {
	cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("control plane unavailable: %v", e.cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.cause
}

func (e *UnavailableError) IsTransient() {}

// InstanceNotFoundError represents an unknown instance id. Retrying cannot
// help, the caller decides whether it is an error at all.
type InstanceNotFoundError struct {
	instanceID string
}

func (e *InstanceNotFoundError) Error() string {
	return fmt.Sprintf("instance %s not found", e.instanceID)
}

func (e *InstanceNotFoundError) IsNotFound() {}

// throttleCodes are the control plane error codes worth another attempt.
var throttleCodes = map[string]struct{}{
	"RequestLimitExceeded":  {},
	"Throttling":            {},
	"ThrottlingException":   {},
	"RequestThrottled":      {},
	"EC2ThrottledException": {},
}

const notFoundCode = "InvalidInstanceID.NotFound"

// classifyError sorts a raw SDK error into the adapter's error taxonomy and
// records the class. A nil error passes through untouched.
func classifyError(err error, instanceID string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// No API verdict means the request may never have arrived.
		metrics.RecordControlPlaneError("unavailable")

		return &UnavailableError{cause: err}
	}

	code := apiErr.ErrorCode()

	if _, ok := throttleCodes[code]; ok {
		metrics.RecordControlPlaneError("throttled")

		return &ThrottledError{cause: err}
	}

	if code == notFoundCode {
		metrics.RecordControlPlaneError("not_found")

		return &InstanceNotFoundError{instanceID: instanceID}
	}

	metrics.RecordControlPlaneError("api")

	return fmt.Errorf("control plane error %s: %w", code, err)
}
