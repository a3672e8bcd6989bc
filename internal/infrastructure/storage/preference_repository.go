package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ErrPreferenceNotFound 偏好项不存在
var ErrPreferenceNotFound = errors.New("preference not found")

// PreferenceKeyVolume 上次使用的音量
const PreferenceKeyVolume = "volume"

/**
 * PreferenceRepository 用户偏好键值存储
 */
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository 创建偏好仓储
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get 读取偏好，不存在时返回 ErrPreferenceNotFound
func (r *PreferenceRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("读取偏好 %s 失败: %w", key, err)
	}
	return value, nil
}

// Set 写入或覆盖偏好
func (r *PreferenceRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("写入偏好 %s 失败: %w", key, err)
	}
	return nil
}

// GetInt 读取整数偏好
func (r *PreferenceRepository) GetInt(key string) (int, error) {
	s, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("偏好 %s 不是整数: %w", key, err)
	}
	return v, nil
}

// SetInt 写入整数偏好
func (r *PreferenceRepository) SetInt(key string, v int) error {
	return r.Set(key, strconv.Itoa(v))
}
