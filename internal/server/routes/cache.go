package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/cache"
	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/logging"
)

// CacheRoutes 汇总 /-/ 诊断接口依赖的组件。
type CacheRoutes struct {
	Store  *cache.Store
	Clock  *era.Clock
	Logger *logrus.Logger
	// CacheFile 为空时 /-/cache/save 返回 409。
	CacheFile string
}

// RegisterCacheRoutes 暴露缓存与 era 的诊断/运维接口。
func RegisterCacheRoutes(app *fiber.App, deps CacheRoutes) {
	if app == nil || deps.Store == nil || deps.Clock == nil {
		return
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		entries := deps.Store.Entries()
		return c.JSON(cacheListing{
			Version: deps.Store.VersionTag(),
			Era:     uint64(deps.Clock.Current()),
			Count:   len(entries),
			Entries: encodeEntries(entries),
		})
	})

	app.Delete("/-/cache", func(c fiber.Ctx) error {
		var cleared int
		deps.Store.Exclusive(func(tx *cache.Txn) {
			cleared = tx.Len()
			tx.Clear()
		})
		logger.WithFields(logrus.Fields{
			"action":  "cache_clear",
			"entries": cleared,
		}).Info("cache cleared")
		return c.JSON(fiber.Map{"cleared": cleared})
	})

	app.Post("/-/era", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"era": uint64(deps.Clock.Advance())})
	})

	app.Post("/-/cache/save", func(c fiber.Ctx) error {
		if deps.CacheFile == "" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cache_file_unset"})
		}
		result := deps.Store.SaveFile(deps.CacheFile)
		fields := logging.PersistFields("cache_save", deps.CacheFile, result.Outcome.String(), result.Entries)
		fields["skipped"] = result.Skipped
		payload := fiber.Map{
			"outcome": result.Outcome.String(),
			"entries": result.Entries,
			"skipped": result.Skipped,
		}
		if result.Outcome != cache.SaveOK {
			logger.WithFields(fields).WithError(result.Err).Warn("cache save failed")
			return c.Status(fiber.StatusInternalServerError).JSON(payload)
		}
		logger.WithFields(fields).Info("cache saved")
		return c.JSON(payload)
	})
}

type cacheListing struct {
	Version string         `json:"version"`
	Era     uint64         `json:"era"`
	Count   int            `json:"count"`
	Entries []entryPayload `json:"entries"`
}

type entryPayload struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	Size      int    `json:"size"`
	Modified  uint64 `json:"modified"`
	Validated uint64 `json:"validated"`
}

func encodeEntries(entries []cache.Entry) []entryPayload {
	result := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entryPayload{
			URL:       entry.URL,
			Token:     entry.Token,
			Size:      len(entry.Body),
			Modified:  uint64(entry.Modified),
			Validated: uint64(entry.Validated),
		})
	}
	return result
}
