package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"condorledger/pkg/utils"
)

// partitions.go - таблица символ -> партиция хранилища
//
// Каждый underlying хранится в своей таблице сделок с одинаковой схемой,
// конфигурации ботов лежат в общей таблице с ключом symbol.
// Код не ветвится по символу: все различия описаны здесь.

// ErrUnknownSymbol - символ отсутствует в таблице партиций
var ErrUnknownSymbol = errors.New("unknown symbol")

// Partition описывает хранилище одного underlying
type Partition struct {
	Symbol      string   `yaml:"symbol"`
	Aliases     []string `yaml:"aliases"`
	TradesTable string   `yaml:"trades_table"`
	ConfigTable string   `yaml:"config_table"`
}

// PartitionTable - неизменяемый набор партиций с поиском по символу и алиасам
type PartitionTable struct {
	partitions []Partition
	index      map[string]int
}

type partitionsFile struct {
	Partitions []Partition `yaml:"partitions"`
}

// DefaultPartitions - раскладка по умолчанию: SPXW и RUT
func DefaultPartitions() []Partition {
	return []Partition{
		{Symbol: "SPXW", Aliases: []string{"SPX"}, TradesTable: "trade_alert", ConfigTable: "bot_config"},
		{Symbol: "RUT", TradesTable: "trade_alert_rut", ConfigTable: "bot_config"},
	}
}

// LoadPartitions читает YAML файл партиций; пустой путь - раскладка по умолчанию
func LoadPartitions(path string) (*PartitionTable, error) {
	if path == "" {
		return NewPartitionTable(DefaultPartitions())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partitions file: %w", err)
	}

	var file partitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse partitions file %s: %w", path, err)
	}

	return NewPartitionTable(file.Partitions)
}

// NewPartitionTable проверяет партиции и строит индекс
func NewPartitionTable(partitions []Partition) (*PartitionTable, error) {
	if len(partitions) == 0 {
		return nil, fmt.Errorf("at least one partition is required")
	}

	table := &PartitionTable{
		partitions: make([]Partition, 0, len(partitions)),
		index:      make(map[string]int),
	}

	for _, p := range partitions {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		if p.Symbol == "" {
			return nil, fmt.Errorf("partition symbol is required")
		}
		if p.ConfigTable == "" {
			p.ConfigTable = "bot_config"
		}
		if err := utils.ValidateIdentifier(p.TradesTable); err != nil {
			return nil, fmt.Errorf("partition %s trades_table: %w", p.Symbol, err)
		}
		if err := utils.ValidateIdentifier(p.ConfigTable); err != nil {
			return nil, fmt.Errorf("partition %s config_table: %w", p.Symbol, err)
		}

		pos := len(table.partitions)
		for _, key := range append([]string{p.Symbol}, p.Aliases...) {
			key = strings.ToUpper(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			if _, dup := table.index[key]; dup {
				return nil, fmt.Errorf("duplicate partition key %q", key)
			}
			table.index[key] = pos
		}
		table.partitions = append(table.partitions, p)
	}

	return table, nil
}

// Lookup находит партицию по символу или алиасу без учета регистра
func (t *PartitionTable) Lookup(symbol string) (Partition, error) {
	pos, ok := t.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Partition{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return t.partitions[pos], nil
}

// All возвращает партиции в порядке объявления
func (t *PartitionTable) All() []Partition {
	out := make([]Partition, len(t.partitions))
	copy(out, t.partitions)
	return out
}

// Symbols возвращает канонические символы, отсортированные по алфавиту
func (t *PartitionTable) Symbols() []string {
	out := make([]string, len(t.partitions))
	for i, p := range t.partitions {
		out[i] = p.Symbol
	}
	sort.Strings(out)
	return out
}
