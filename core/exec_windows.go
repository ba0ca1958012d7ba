package core

import "errors"

func replaceProcess(path string, argv []string) error {
	return errors.New("replacing the shell is not supported on windows")
}
