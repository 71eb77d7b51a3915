package services

import (
	"os"
	"testing"

	"github.com/nyumba/nyumba-api/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Setup("test")
	os.Exit(m.Run())
}
