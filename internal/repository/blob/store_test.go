package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobpkg "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory container.
type fakeAPI struct {
	blobs     map[string][]byte
	pages     [][]string
	createErr error
	uploadErr error
	listErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{blobs: map[string][]byte{}}
}

func (f *fakeAPI) CreateContainer(
	context.Context, string, *azblob.CreateContainerOptions,
) (azblob.CreateContainerResponse, error) {
	return azblob.CreateContainerResponse{}, f.createErr
}

func (f *fakeAPI) UploadStream(
	_ context.Context, _, name string, body io.Reader, _ *azblob.UploadStreamOptions,
) (azblob.UploadStreamResponse, error) {
	if f.uploadErr != nil {
		return azblob.UploadStreamResponse{}, f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return azblob.UploadStreamResponse{}, err
	}
	f.blobs[name] = data
	return azblob.UploadStreamResponse{}, nil
}

func (f *fakeAPI) NewListBlobsFlatPager(
	string, *azblob.ListBlobsFlatOptions,
) *runtime.Pager[azblob.ListBlobsFlatResponse] {
	pages := f.pages
	if pages == nil {
		var all []string
		for name := range f.blobs {
			all = append(all, name)
		}
		pages = [][]string{all}
	}
	next := 0
	return runtime.NewPager(runtime.PagingHandler[azblob.ListBlobsFlatResponse]{
		More: func(azblob.ListBlobsFlatResponse) bool { return next < len(pages) },
		Fetcher: func(context.Context, *azblob.ListBlobsFlatResponse) (azblob.ListBlobsFlatResponse, error) {
			if f.listErr != nil {
				return azblob.ListBlobsFlatResponse{}, f.listErr
			}
			items := make([]*container.BlobItem, 0, len(pages[next]))
			for _, name := range pages[next] {
				items = append(items, &container.BlobItem{
					Name:       to.Ptr(name),
					Properties: &container.BlobProperties{ContentLength: to.Ptr(int64(len(f.blobs[name])))},
				})
			}
			next++
			return azblob.ListBlobsFlatResponse{
				ListBlobsFlatSegmentResponse: container.ListBlobsFlatSegmentResponse{
					Segment: &container.BlobFlatListSegment{BlobItems: items},
				},
			}, nil
		},
	})
}

func (f *fakeAPI) DownloadStream(
	_ context.Context, _, name string, _ *azblob.DownloadStreamOptions,
) (azblob.DownloadStreamResponse, error) {
	data, ok := f.blobs[name]
	if !ok {
		return azblob.DownloadStreamResponse{}, responseError(bloberror.BlobNotFound, http.StatusNotFound)
	}
	return azblob.DownloadStreamResponse{
		DownloadResponse: azblobpkg.DownloadResponse{Body: io.NopCloser(bytes.NewReader(data))},
	}, nil
}

func responseError(code bloberror.Code, status int) error {
	req := httptest.NewRequest(http.MethodGet, "https://acct.blob.core.windows.net/documents", nil)
	return &azcore.ResponseError{
		ErrorCode:  string(code),
		StatusCode: status,
		RawResponse: &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       http.NoBody,
			Request:    req,
		},
	}
}

func TestStore_UploadListDownload(t *testing.T) {
	api := newFakeAPI()
	s := newStore(api, "documents", "https://acct.blob.core.windows.net", nil)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "b.pdf", bytes.NewReader([]byte("bbbb"))))
	require.NoError(t, s.Upload(ctx, "a.pdf", bytes.NewReader([]byte("aa"))))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Info{{Name: "a.pdf", Size: 2}, {Name: "b.pdf", Size: 4}}, list)

	data, err := s.Download(ctx, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(data))
}

func TestStore_UploadOverwrites(t *testing.T) {
	api := newFakeAPI()
	s := newStore(api, "documents", "https://acct.blob.core.windows.net/", nil)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a.pdf", bytes.NewReader([]byte("old"))))
	require.NoError(t, s.Upload(ctx, "a.pdf", bytes.NewReader([]byte("new"))))
	assert.Equal(t, "new", string(api.blobs["a.pdf"]))
}

func TestStore_ListAcrossPages(t *testing.T) {
	api := newFakeAPI()
	api.blobs = map[string][]byte{"a.pdf": {1}, "b.pdf": {1, 2}, "c.pdf": {1, 2, 3}}
	api.pages = [][]string{{"c.pdf"}, {"a.pdf", "b.pdf"}}
	s := newStore(api, "documents", "https://acct.blob.core.windows.net/", nil)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a.pdf", list[0].Name)
	assert.Equal(t, int64(3), list[2].Size)
}

func TestStore_ListError(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("403")
	s := newStore(api, "documents", "https://acct.blob.core.windows.net/", nil)

	_, err := s.List(context.Background())
	require.Error(t, err)
}

func TestStore_DownloadMissing(t *testing.T) {
	s := newStore(newFakeAPI(), "documents", "https://acct.blob.core.windows.net/", nil)

	_, err := s.Download(context.Background(), "nope.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EnsureContainer(t *testing.T) {
	api := newFakeAPI()
	s := newStore(api, "documents", "https://acct.blob.core.windows.net/", nil)
	require.NoError(t, s.EnsureContainer(context.Background()))

	api.createErr = responseError(bloberror.ContainerAlreadyExists, http.StatusConflict)
	require.NoError(t, s.EnsureContainer(context.Background()))

	api.createErr = responseError(bloberror.AuthorizationFailure, http.StatusForbidden)
	require.Error(t, s.EnsureContainer(context.Background()))
}

func TestStore_URL(t *testing.T) {
	s := newStore(newFakeAPI(), "documents", "https://acct.blob.core.windows.net", nil)
	assert.Equal(t, "https://acct.blob.core.windows.net/documents/Admin%20Guide.pdf", s.URL("Admin Guide.pdf"))
	assert.Equal(t, "https://acct.blob.core.windows.net/documents/dir/a.pdf", s.URL("dir/a.pdf"))
}

func TestNewStore_RequiresAccountAndContainer(t *testing.T) {
	_, err := NewStore(Config{Account: "acct"}, nil)
	require.Error(t, err)
}
