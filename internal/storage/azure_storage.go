package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

// HistoryExporter backs up the scan history log
type HistoryExporter interface {
	Export(ctx context.Context, items []models.HistoryItem) (string, error)
}

// blobClient is the subset of *azblob.Client used for exports
type blobClient interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

type azureHistoryExporter struct {
	client    blobClient
	container string
	now       func() time.Time
}

// NewAzureHistoryExporter authenticates with a shared key against the
// account's blob endpoint.
func NewAzureHistoryExporter(accountName, accountKey, container string) (HistoryExporter, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return newAzureHistoryExporter(client, container), nil
}

func newAzureHistoryExporter(client blobClient, container string) *azureHistoryExporter {
	return &azureHistoryExporter{client: client, container: container, now: time.Now}
}

// Export uploads the items as one JSON document and returns the blob name
func (s *azureHistoryExporter) Export(ctx context.Context, items []models.HistoryItem) (string, error) {
	if items == nil {
		items = []models.HistoryItem{}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", apperrors.NewStorageError("failed to encode history", err)
	}

	if _, err := s.client.CreateContainer(ctx, s.container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return "", apperrors.NewStorageError("failed to create history container", err)
	}

	blobName := fmt.Sprintf("history/%s.json", s.now().UTC().Format("20060102T150405Z"))
	contentType := "application/json"
	_, err = s.client.UploadBuffer(ctx, s.container, blobName, payload, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", apperrors.NewStorageError("failed to upload history", err)
	}

	logger.WithFields(logrus.Fields{
		"container": s.container,
		"blob":      blobName,
		"items":     len(items),
		"bytes":     len(payload),
	}).Info("History exported")
	return blobName, nil
}
