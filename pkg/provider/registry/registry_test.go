package registry

import (
	"context"
	"testing"

	"ai-chatwidget-be/pkg/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	id string
}

func (s *stubProvider) ID() string { return s.id }

func (s *stubProvider) Capabilities() provider.Capabilities { return provider.Capabilities{} }

func (s *stubProvider) SendDirect(context.Context, []provider.Message, ...provider.Option) (string, error) {
	return "", nil
}

func (s *stubProvider) SendRetrieval(context.Context, []provider.Message, []string, ...provider.Option) (string, error) {
	return "", nil
}

func (s *stubProvider) SendDirectStream(context.Context, []provider.Message, ...provider.Option) (<-chan provider.StreamEvent, error) {
	return nil, nil
}

func (s *stubProvider) UploadDocument(context.Context, []byte, string, string) (*provider.UploadResult, error) {
	return nil, provider.ErrUnsupportedOperation
}

func (s *stubProvider) DeleteDocument(context.Context, string, string) error {
	return provider.ErrUnsupportedOperation
}

func TestRegisterAndResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubProvider{id: "ollama"}))
	require.NoError(t, r.Register(&stubProvider{id: "openwebui"}))

	p, err := r.Resolve("ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.ID())

	assert.ElementsMatch(t, []string{"ollama", "openwebui"}, r.IDs())
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubProvider{id: "ollama"}))

	err := r.Register(&stubProvider{id: "ollama"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterEmptyIDFails(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(&stubProvider{id: ""}))
}

func TestResolveUnknownFails(t *testing.T) {
	r := New()
	_, err := r.Resolve("claude")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
