package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// HistoryStore 集合竞价估算的历史记录
type HistoryStore interface {
	SaveEstimate(ctx context.Context, view MarketView) error
	RecentEstimates(ctx context.Context, pair string, limit int) ([]BatchModel, error)
}

// PostgresClient 封装GORM客户端
type PostgresClient struct {
	db *gorm.DB
}

// NewPostgresClient 初始化GORM客户端
func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 PostgreSQL: %v", err)
	}

	// 自动迁移数据库结构
	if err := db.AutoMigrate(&BatchModel{}); err != nil {
		return nil, fmt.Errorf("自动迁移失败: %v", err)
	}

	return &PostgresClient{db: db}, nil
}

// Close 关闭GORM客户端
func (pc *PostgresClient) Close() {
	if sqlDB, err := pc.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// BatchModel 映射到batch_estimates表，金额按十进制字符串保存
type BatchModel struct {
	BatchID         string `gorm:"primaryKey;type:uuid" json:"batchId"`
	Pair            string `gorm:"type:varchar(20);index" json:"pair"`
	Matched         bool   `json:"matched"`
	ClearingPrice   string `gorm:"type:varchar(80)" json:"clearingPrice"`
	MatchedQuantity string `gorm:"type:varchar(80)" json:"matchedQuantity"`
	BidRatio        string `gorm:"type:varchar(40)" json:"bidRatio"`
	AskRatio        string `gorm:"type:varchar(40)" json:"askRatio"`
	BidOrders       int    `json:"bidOrders"`
	AskOrders       int    `json:"askOrders"`
	Timestamp       int64  `gorm:"index" json:"timestamp"` // 毫秒
}

// TableName 指定BatchModel的表名
func (BatchModel) TableName() string {
	return "batch_estimates"
}

func newBatchModel(view MarketView) BatchModel {
	b := view.Batch
	return BatchModel{
		BatchID:         uuid.New().String(),
		Pair:            view.Pair,
		Matched:         b.Matched,
		ClearingPrice:   b.ClearingPrice.String(),
		MatchedQuantity: b.MatchedQuantity.String(),
		BidRatio:        b.BidRatio.String(),
		AskRatio:        b.AskRatio.String(),
		BidOrders:       view.BidOrders,
		AskOrders:       view.AskOrders,
		Timestamp:       view.UpdatedAt,
	}
}

// SaveEstimate 保存一次估算结果
func (pc *PostgresClient) SaveEstimate(ctx context.Context, view MarketView) error {
	model := newBatchModel(view)
	return pc.db.WithContext(ctx).Create(&model).Error
}

// RecentEstimates 最近的估算记录，时间倒序
func (pc *PostgresClient) RecentEstimates(ctx context.Context, pair string, limit int) ([]BatchModel, error) {
	var rows []BatchModel
	err := pc.db.WithContext(ctx).
		Where("pair = ?", pair).
		Order("timestamp desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %v", err)
	}
	return rows, nil
}
