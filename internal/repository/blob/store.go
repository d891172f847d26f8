package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// api is the subset of *azblob.Client the store uses.
type api interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// Info describes a stored blob.
type Info struct {
	Name string
	Size int64
}

// Config holds the storage account settings.
type Config struct {
	Account    string
	AccountKey string // empty: DefaultAzureCredential
	Container  string
	Endpoint   string // default https://<account>.blob.core.windows.net/
}

// Store is a blob container holding the source documents.
type Store struct {
	client    api
	container string
	endpoint  string
	logger    *zap.Logger
}

// NewStore connects to the storage account. A shared key is used when configured,
// otherwise the Azure SDK default credential chain.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Account == "" || cfg.Container == "" {
		return nil, errors.New("storage account and container are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.AccountKey != "" {
		cred, credErr := azblob.NewSharedKeyCredential(cfg.Account, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	} else {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("default azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(endpoint, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}

	return newStore(client, cfg.Container, endpoint, logger), nil
}

func newStore(client api, container, endpoint string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:    client,
		container: container,
		endpoint:  strings.TrimSuffix(endpoint, "/") + "/",
		logger:    logger,
	}
}

// Container returns the container name.
func (s *Store) Container() string {
	return s.container
}

// EnsureContainer creates the container if it does not exist yet.
func (s *Store) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err == nil {
		s.logger.Info("Created blob container", zap.String("container", s.container))
		return nil
	}
	if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil
	}
	return fmt.Errorf("create container %s: %w", s.container, err)
}

// Upload stores body under name, overwriting an existing blob.
func (s *Store) Upload(ctx context.Context, name string, body io.Reader) error {
	if _, err := s.client.UploadStream(ctx, s.container, name, body, nil); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// List returns all blobs in the container, sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, nil)

	var out []Info
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.container, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := Info{Name: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				info.Size = *item.Properties.ContentLength
			}
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Download reads the whole blob.
func (s *Store) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// URL returns the blob's address; used as the citation link.
func (s *Store) URL(name string) string {
	return s.endpoint + url.PathEscape(s.container) + "/" + escapeBlobName(name)
}

func escapeBlobName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
