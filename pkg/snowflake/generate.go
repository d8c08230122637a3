package snowflake

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidMachineID    = errors.New("invalid snowflake machine id")
	errInvalidDataCenterID = errors.New("invalid snowflake datacenter id")
	errGeneratorUninitial  = errors.New("snowflake generator is not initialized")
)

// Init 初始化全局节点，datacenterID 与 machineID 均为 0~31
func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		n, err := NewNode(machineID, dataCenterID)
		if err != nil {
			initErr = err
			return
		}
		node = n
	})

	return initErr
}

// NewNode 创建独立节点，账户服务测试中使用
func NewNode(machineID, dataCenterID int64) (*snowflake.Node, error) {
	if machineID < 0 || machineID > 31 {
		return nil, errInvalidMachineID
	}
	if dataCenterID < 0 || dataCenterID > 31 {
		return nil, errInvalidDataCenterID
	}
	return snowflake.NewNode((dataCenterID << 5) | machineID)
}

func NextID() (int64, error) {
	if node == nil {
		return 0, errGeneratorUninitial
	}

	return node.Generate().Int64(), nil
}
