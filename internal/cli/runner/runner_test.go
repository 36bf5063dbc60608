package runner

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylock/skylock/internal/config"
)

func TestInterceptorChainOrder(t *testing.T) {
	var order []string

	provider := func() (*config.Config, error) { return &config.Config{}, nil }

	makeInterceptor := func(name string) Interceptor {
		return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
			order = append(order, name+"-before")
			err := next()
			order = append(order, name+"-after")
			return err
		}
	}

	r := NewRunner(provider).Use(
		makeInterceptor("first"),
		makeInterceptor("second"),
		makeInterceptor("third"),
	)

	handler := func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		order = append(order, "handler")
		return nil
	}

	require.NoError(t, r.Wrap(handler)(&cobra.Command{}, nil))

	assert.Equal(t, []string{
		"first-before", "second-before", "third-before",
		"handler",
		"third-after", "second-after", "first-after",
	}, order)
}

func TestInterceptorChainStopsOnError(t *testing.T) {
	var order []string
	expectedErr := errors.New("interceptor error")

	provider := func() (*config.Config, error) { return &config.Config{}, nil }

	r := NewRunner(provider).Use(
		func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
			order = append(order, "first")
			return next()
		},
		func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
			order = append(order, "second-fails")
			return expectedErr
		},
		func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
			order = append(order, "third-should-not-run")
			return next()
		},
	)

	handler := func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		order = append(order, "handler-should-not-run")
		return nil
	}

	err := r.Wrap(handler)(&cobra.Command{}, nil)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, []string{"first", "second-fails"}, order)
}

func TestRequireConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		cfgErr    error
		wantErr   error
		wantCalls bool
	}{
		{name: "config loaded", cfg: &config.Config{}, wantCalls: true},
		{name: "config nil", cfg: nil, wantErr: ErrNotInitialized},
		{name: "config error", cfg: nil, cfgErr: errors.New("load error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			provider := func() (*config.Config, error) { return tt.cfg, tt.cfgErr }

			r := NewRunner(provider).Use(RequireConfig())
			handler := func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
				called = true
				return nil
			}

			err := r.Wrap(handler)(&cobra.Command{}, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.cfgErr != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, called)
		})
	}
}

func TestRequireSigningKey(t *testing.T) {
	tests := []struct {
		name       string
		privateKey []byte
		wantErr    error
	}{
		{name: "key present", privateKey: []byte{1, 2, 3}},
		{name: "key absent", privateKey: nil, wantErr: ErrNoSigningKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := func() (*config.Config, error) {
				return &config.Config{PrivateKey: tt.privateKey}, nil
			}

			r := NewRunner(provider).Use(RequireSigningKey())
			handler := func(ctx *CommandContext, cmd *cobra.Command, args []string) error { return nil }

			err := r.Wrap(handler)(&cobra.Command{}, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuilderPatterns(t *testing.T) {
	provider := func() (*config.Config, error) {
		return &config.Config{PrivateKey: []byte{1, 2, 3}}, nil
	}
	builder := NewBuilder(provider)

	tests := []struct {
		name   string
		runner *CommandRunner
	}{
		{"Base", builder.Base()},
		{"Config", builder.Config()},
		{"Signed", builder.Signed()},
		{"Uninitialized", builder.Uninitialized()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(ctx *CommandContext, cmd *cobra.Command, args []string) error { return nil }
			assert.NoError(t, tt.runner.Wrap(handler)(&cobra.Command{}, nil))
		})
	}
}

func TestContextNilConfig(t *testing.T) {
	ctx := NewContext(nil, nil)

	assert.False(t, ctx.HasConfig())
	_, err := ctx.Backend()
	assert.ErrorIs(t, err, ErrNotInitialized)

	err = ctx.SaveConfig()
	assert.ErrorIs(t, err, ErrNotInitialized)
}
