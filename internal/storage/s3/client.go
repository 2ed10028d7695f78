package s3

import (
	"context"
	"errors"
	"fmt"

	"portal-service/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken         = ""
	errFailedCreateAWSSessionFmt = "failed to create AWS session: %w"
	errFailedDeleteObjectFmt     = "failed to delete object %s/%s: %w"
	errBucketRequired            = "bucket is required"
)

type Client struct {
	svc           *s3.S3
	defaultBucket string
}

func NewClient(cfg *config.AWSConfig) (*Client, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &Client{
		svc:           s3.New(sess),
		defaultBucket: cfg.AssetsBucket,
	}, nil
}

// DeleteObject removes one object. An empty bucket falls back to the assets bucket.
// Deleting a key that is already gone is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucketName, objectKey string) error {
	if bucketName == "" {
		bucketName = c.defaultBucket
	}
	if bucketName == "" {
		return errors.New(errBucketRequired)
	}

	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf(errFailedDeleteObjectFmt, bucketName, objectKey, err)
	}

	return nil
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey
}
