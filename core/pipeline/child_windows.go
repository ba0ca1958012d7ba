package pipeline

import "os/exec"

func configureChild(cmd *exec.Cmd) {}

func startChild(cmd *exec.Cmd) error {
	return cmd.Start()
}
