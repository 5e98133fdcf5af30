package models

import (
	"encoding/json"
	"os"
	"time"
)

// CheckpointFilename 检查点文件名
const CheckpointFilename = "checkpoint.json"

// Checkpoint 运行检查点,用于断点续跑且不重复写入结果表
type Checkpoint struct {
	// 运行信息
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`

	// 进度信息
	CompletedProperties []string            `json:"completed_properties"`
	Results             []RedirectResult    `json:"results"`
	PageErrors          []RedirectResult    `json:"page_errors"`
	ManualReview        []ManualReviewEntry `json:"manual_review"`
	Failed              []FailedProperty    `json:"failed_properties"`
	Properties          []PropertyStats     `json:"properties"`
	FlushCursor         int                 `json:"flush_cursor"`      // 已写入结果表的结果下标
	PageFlushCursor     int                 `json:"page_flush_cursor"` // 已写入结果表的页面错误下标

	// 统计信息
	Totals RunTotals `json:"totals"`

	// 时间戳
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted 物业是否已在之前的运行中完成
func (c *Checkpoint) IsCompleted(property string) bool {
	for _, p := range c.CompletedProperties {
		if p == property {
			return true
		}
	}
	return false
}

// ToJSON 序列化为JSON
func (c *Checkpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// FromJSON 从JSON反序列化
func (c *Checkpoint) FromJSON(data []byte) error {
	return json.Unmarshal(data, c)
}

// SaveToFile 保存到文件(先写临时文件再重命名)
func (c *Checkpoint) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadCheckpointFromFile 从文件加载
func LoadCheckpointFromFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := cp.FromJSON(data); err != nil {
		return nil, err
	}

	return &cp, nil
}
