package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeThrottling         = "ThrottlingException"
	errCodeThroughput         = "ProvisionedThroughputExceededException"
)

// DetectFacesAPI is the slice of the Rekognition client the locator uses.
type DetectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewClient creates a Rekognition client for the configured region.
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// parseError maps Rekognition API errors onto domain errors. Rejected
// images are the caller's fault; everything else is a locator failure.
func parseError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeInvalidParameter, errCodeInvalidImageFormat, errCodeImageTooLarge:
			return domain.ErrInvalidImage.WithError(err)
		case errCodeAccessDenied:
			return domain.ErrLocatorFailed.WithError(fmt.Errorf("%w: %v", ErrInvalidCredentials, err))
		case errCodeThrottling, errCodeThroughput:
			return domain.ErrLocatorFailed.WithError(fmt.Errorf("%w: %v", ErrThrottled, err))
		}
	}
	return domain.ErrLocatorFailed.WithError(fmt.Errorf("detect faces: %w", err))
}
