package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/khatanna/salon-service/internal/config"
	"github.com/sirupsen/logrus"
)

// StorageClient representa el cliente del storage de Supabase vía S3
type StorageClient struct {
	s3Client *s3.Client
	config   *config.SupabaseConfig
	logger   *logrus.Logger
	bucket   string
}

// NewStorageClient crea una nueva instancia del cliente de storage
func NewStorageClient(cfg *config.SupabaseConfig, logger *logrus.Logger) (*StorageClient, error) {
	// Resolver el endpoint S3 de Supabase
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.StorageEndpoint,
			SigningRegion:     cfg.StorageRegion,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			},
		}),
		awsconfig.WithRegion(cfg.StorageRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Importante para Supabase
	})

	return &StorageClient{
		s3Client: s3Client,
		config:   cfg,
		logger:   logger,
		bucket:   cfg.ConsentBucket,
	}, nil
}

// HealthCheck verifica la conexión al storage
func (s *StorageClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking storage connection: %w", err)
	}
	return nil
}

// UploadFile sube un archivo binario con metadatos descriptivos y retorna la
// URL pública de descarga. Los errores de subida se registran con el detalle
// que entrega el servidor y se propagan al llamador; no se reintenta.
func (s *StorageClient) UploadFile(ctx context.Context, fileName string, fileData []byte, metadata map[string]string) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(fileName),
		Body:          bytes.NewReader(fileData),
		ContentType:   aws.String("application/octet-stream"),
		ContentLength: aws.Int64(int64(len(fileData))),
		Metadata:      metadata,
	})
	if err != nil {
		fields := logrus.Fields{
			"bucket": s.bucket,
			"file":   fileName,
			"size":   len(fileData),
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			fields["error_code"] = apiErr.ErrorCode()
			fields["error_message"] = apiErr.ErrorMessage()
		}
		s.logger.WithError(err).WithFields(fields).Error("Error uploading file to storage")
		return "", fmt.Errorf("error uploading file %s: %w", fileName, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.config.StorageEndpoint, s.bucket, fileName)

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"file":   fileName,
		"url":    url,
		"size":   len(fileData),
	}).Info("File uploaded to storage")

	return url, nil
}

// DownloadFile descarga un archivo del storage
func (s *StorageClient) DownloadFile(ctx context.Context, fileName string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading file %s: %w", fileName, err)
	}
	defer result.Body.Close()

	fileData, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return fileData, nil
}

// DeleteFile elimina un archivo del storage
func (s *StorageClient) DeleteFile(ctx context.Context, fileName string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return fmt.Errorf("error deleting file %s: %w", fileName, err)
	}
	return nil
}
