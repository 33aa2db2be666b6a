package job

import (
	"github.com/Retroinn/MotoCrew/database"
	"github.com/Retroinn/MotoCrew/logger"
)

// CheckpointJob folds the sqlite WAL back into the main database file so it
// does not grow without bound between restarts.
type CheckpointJob struct{}

func NewCheckpointJob() *CheckpointJob {
	return new(CheckpointJob)
}

func (j *CheckpointJob) Run() {
	if err := database.Checkpoint(); err != nil {
		logger.Warning("wal checkpoint failed:", err)
	}
}
