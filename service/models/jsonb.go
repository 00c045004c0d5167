package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONDocument 原样保存的 JSON 文档
type JSONDocument []byte

// Scan 实现 Scanner 接口
func (j *JSONDocument) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONDocument(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return nil
}

// Value 实现 Valuer 接口
func (j JSONDocument) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, errors.New("不是合法的 JSON 文档")
	}
	return string(j), nil
}

// PolicyDocument 策略存储中一个逻辑键对应的文档
type PolicyDocument struct {
	Key       string       `json:"key" gorm:"column:doc_key;primaryKey;size:64"`
	Value     JSONDocument `json:"value" gorm:"type:text"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName 指定表名
func (PolicyDocument) TableName() string {
	return "policy_documents"
}
