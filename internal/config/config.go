package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type ClusterConfig struct {
	DefaultK  int     `json:"default_k"`
	Seed      int64   `json:"seed"`
	MaxIter   int     `json:"max_iter"`
	Tol       float64 `json:"tol"`
	NInit     int     `json:"n_init"`
	Init      string  `json:"init"`
	MaxRows   int     `json:"max_rows"`
	ElbowMaxK int     `json:"elbow_max_k"`
}

type TextConfig struct {
	HashFeatures     int   `json:"hash_features"`
	UseIDF           bool  `json:"use_idf"`
	TopTerms         int   `json:"top_terms"`
	MaxFileSizeBytes int64 `json:"max_file_size_bytes"`
	MaxDocuments     int   `json:"max_documents"`
}

type DataflowConfig struct {
	Partitions int `json:"partitions"`
}

type Config struct {
	DataDir  string         `json:"data_dir"`
	DBPath   string         `json:"db_path"`
	PlotsDir string         `json:"plots_dir"`
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	Cluster  ClusterConfig  `json:"cluster"`
	Text     TextConfig     `json:"text"`
	Dataflow DataflowConfig `json:"dataflow"`
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".clusterlab")
	return Config{
		DataDir:  dataDir,
		DBPath:   filepath.Join(dataDir, "clusterlab.db"),
		PlotsDir: filepath.Join(dataDir, "plots"),
		Host:     "127.0.0.1",
		Port:     8750,
		Cluster: ClusterConfig{
			DefaultK:  3,
			Seed:      42,
			MaxIter:   300,
			Tol:       1e-4,
			NInit:     10,
			Init:      "k-means++",
			MaxRows:   20000,
			ElbowMaxK: 10,
		},
		Text: TextConfig{
			HashFeatures:     1 << 10,
			UseIDF:           true,
			TopTerms:         8,
			MaxFileSizeBytes: 5 * 1024 * 1024,
			MaxDocuments:     20000,
		},
		Dataflow: DataflowConfig{
			Partitions: 4,
		},
	}
}

func LoadConfig() Config {
	cfg := DefaultConfig()

	if dataDir := os.Getenv("CL_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
		cfg.DBPath = filepath.Join(dataDir, "clusterlab.db")
		cfg.PlotsDir = filepath.Join(dataDir, "plots")
	}
	if host := os.Getenv("CL_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("CL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if k := os.Getenv("CL_DEFAULT_K"); k != "" {
		if v, err := strconv.Atoi(k); err == nil && v > 0 {
			cfg.Cluster.DefaultK = v
		}
	}
	if seed := os.Getenv("CL_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Cluster.Seed = v
		}
	}
	if f := os.Getenv("CL_HASH_FEATURES"); f != "" {
		if v, err := strconv.Atoi(f); err == nil && v > 0 {
			cfg.Text.HashFeatures = v
		}
	}

	cfg.EnsureDirs()
	return cfg
}

func (c *Config) EnsureDirs() {
	for _, d := range []string{c.DataDir, c.PlotsDir} {
		os.MkdirAll(d, 0o755)
	}
}
