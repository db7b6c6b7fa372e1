package control

import "errors"

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrDescribeInstance = errors.New("describe instance")
	ErrStartInstance    = errors.New("start instance")
	ErrStopInstance     = errors.New("stop instance")
	ErrRebootInstance   = errors.New("reboot instance")
	ErrUptimeReport     = errors.New("uptime report")
)
