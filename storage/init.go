package storage

import (
	"GreenNest/storage/database"
	"GreenNest/storage/mq"
	"GreenNest/storage/redis"
)

// Init 统一初始化存储层：数据库、Redis、RabbitMQ
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
