package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"signpractice/internal/practice"
)

// CommandSource captures by running an external program that writes a JPEG
// or PNG to stdout, e.g. "fswebcam --no-banner -".
type CommandSource struct {
	name   string
	args   []string
	device string
}

// NewCommandSource parses command into a program and its arguments. device,
// if set, is a device node that must exist for permission to be granted.
func NewCommandSource(command, device string) (*CommandSource, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty capture command")
	}
	return &CommandSource{name: fields[0], args: fields[1:], device: device}, nil
}

func (c *CommandSource) RequestPermission(_ context.Context) (bool, error) {
	if _, err := exec.LookPath(c.name); err != nil {
		return false, nil
	}
	if c.device != "" {
		if _, err := os.Stat(c.device); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (c *CommandSource) CaptureStill(ctx context.Context, quality float64) (string, error) {
	if ok, _ := c.RequestPermission(ctx); !ok {
		return "", practice.ErrNoCaptureDevice
	}
	out, err := exec.CommandContext(ctx, c.name, c.args...).Output()
	if err != nil {
		return "", fmt.Errorf("run capture command %s: %w", c.name, err)
	}
	if len(out) == 0 {
		return "", practice.ErrNoCaptureDevice
	}
	return Encode(out, quality)
}
