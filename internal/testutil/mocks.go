// Package testutil provides shared mock implementations for tests.
package testutil

import (
	"context"
	"image"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

// MockCodec is a testify mock for converter.Codec.
type MockCodec struct {
	mock.Mock
}

var _ converter.Codec = (*MockCodec)(nil)

func (m *MockCodec) Decode(ctx context.Context, path string) (image.Image, error) {
	args := m.Called(ctx, path)
	img, _ := args.Get(0).(image.Image)
	return img, args.Error(1)
}

func (m *MockCodec) ReadMetadata(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

func (m *MockCodec) Encode(ctx context.Context, img image.Image, w io.Writer, quality int, exif []byte) error {
	args := m.Called(ctx, img, w, quality, exif)
	return args.Error(0)
}

// MockHooks is a testify mock for converter.Hooks.
type MockHooks struct {
	mock.Mock
}

var _ converter.Hooks = (*MockHooks)(nil)

func (m *MockHooks) OnProgress(completed, total int, sourcePath string) error {
	args := m.Called(completed, total, sourcePath)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report converter.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
