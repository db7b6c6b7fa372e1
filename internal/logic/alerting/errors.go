package alerting

import "errors"

var (
	ErrListInstances = errors.New("list managed instances")
	ErrLoadConfigs   = errors.New("load alert configs")
	ErrFiringHistory = errors.New("query firing history")
	ErrRecordFiring  = errors.New("record alert firing")
)
