package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPreferenceRepository 测试偏好读写
func TestPreferenceRepository(t *testing.T) {
	repo := NewPreferenceRepository(setupTestDB(t))

	_, err := repo.GetInt(PreferenceKeyVolume)
	assert.ErrorIs(t, err, ErrPreferenceNotFound)

	require.NoError(t, repo.SetInt(PreferenceKeyVolume, 42))
	v, err := repo.GetInt(PreferenceKeyVolume)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	require.NoError(t, repo.SetInt(PreferenceKeyVolume, 7), "覆盖已有值")
	v, err = repo.GetInt(PreferenceKeyVolume)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	require.NoError(t, repo.Set("theme", "dark"))
	_, err = repo.GetInt("theme")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPreferenceNotFound)
}
