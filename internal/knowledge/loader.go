package knowledge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"retailbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadDirectory loads per-store knowledge trees from YAML files in dir. The
// file name (minus extension) is the store id. Unreadable or malformed files
// are logged and skipped so one bad upload never blocks the gateway.
func LoadDirectory(dir string, logger *slog.Logger) (map[string]*domain.KnowledgeTree, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("knowledge directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}

	trees := make(map[string]*domain.KnowledgeTree)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read knowledge file", "path", path, "err", err)
			continue
		}

		var tree domain.KnowledgeTree
		if err := yaml.Unmarshal(data, &tree); err != nil {
			logger.Warn("cannot parse knowledge file", "path", path, "err", err)
			continue
		}

		storeID := strings.TrimSuffix(name, filepath.Ext(name))
		trees[storeID] = &tree
		logger.Info("loaded store knowledge", "store", storeID, "path", path)
	}

	return trees, nil
}

// SaveTree writes one store's tree back to the knowledge directory as YAML.
func SaveTree(dir, storeID string, tree *domain.KnowledgeTree) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create knowledge directory: %w", err)
	}
	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal knowledge tree: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, storeID+".yaml"), data, 0o644)
}
