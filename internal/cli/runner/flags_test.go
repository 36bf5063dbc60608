package runner

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestFlagSetString(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("name", "default", "test flag")
	cmd.Flags().Set("name", "alice")

	flags := Flags(cmd)
	assert.Equal(t, "alice", flags.String("name"))
	assert.NoError(t, flags.Err())
}

func TestFlagSetInt(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int("count", 0, "test flag")
	cmd.Flags().Set("count", "42")

	flags := Flags(cmd)
	assert.Equal(t, 42, flags.Int("count"))
	assert.NoError(t, flags.Err())
}

func TestFlagSetInt64(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int64("size", 0, "test flag")
	cmd.Flags().Set("size", "9223372036854775807")

	flags := Flags(cmd)
	assert.Equal(t, int64(9223372036854775807), flags.Int64("size"))
	assert.NoError(t, flags.Err())
}

func TestFlagSetBool(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("verbose", false, "test flag")
	cmd.Flags().Set("verbose", "true")

	flags := Flags(cmd)
	assert.True(t, flags.Bool("verbose"))
	assert.NoError(t, flags.Err())
}

func TestFlagSetStringSlice(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringSlice("items", nil, "test flag")
	cmd.Flags().Set("items", "a,b,c")

	flags := Flags(cmd)
	assert.Equal(t, []string{"a", "b", "c"}, flags.StringSlice("items"))
	assert.NoError(t, flags.Err())
}

func TestFlagSetChanged(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("changed", "default", "test flag")
	cmd.Flags().String("unchanged", "default", "test flag")
	cmd.Flags().Set("changed", "new")

	flags := Flags(cmd)
	assert.True(t, flags.Changed("changed"))
	assert.False(t, flags.Changed("unchanged"))
}

func TestFlagSetErrorAccumulation(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("valid", "default", "test flag")

	flags := Flags(cmd)
	_ = flags.String("invalid1")
	_ = flags.Int("invalid2")

	assert.Equal(t, "default", flags.String("valid"))
	assert.True(t, flags.HasErrors())
	assert.Error(t, flags.Err())
}

func TestFlagSetNoErrors(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("name", "default", "test flag")

	flags := Flags(cmd)
	_ = flags.String("name")

	assert.False(t, flags.HasErrors())
	assert.NoError(t, flags.Err())
}
