package app

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
)

// CommandTransform builds a TransformFunc from an external filter command.
// The command runs under sh -c with the artifact content on stdin and the
// staging-relative name in $STAGEHAND_FILE; its stdout replaces the
// content. A failing filter is logged and the original content staged
// unchanged — a broken transform must not block publishing.
func CommandTransform(command string, log *slog.Logger) TransformFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(name string, content []byte) []byte {
		cmd := exec.Command("sh", "-c", command)
		cmd.Env = append(os.Environ(), "STAGEHAND_FILE="+name)
		cmd.Stdin = bytes.NewReader(content)
		out, err := cmd.Output()
		if err != nil {
			log.Error("transform command failed", "path", name, "err", err)
			return content
		}
		return out
	}
}
