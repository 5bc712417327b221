package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmt-lab/bottlerocket"
	"github.com/jmt-lab/bottlerocket/cli"
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/controller"
	"github.com/jmt-lab/bottlerocket/datastore/serialization"
	"github.com/jmt-lab/bottlerocket/datastore/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/xerrors"
)

// storeAction is an action executed against an opened store.
type storeAction func(flags cli.Flags, store datastore.DataStore) error

// withStore opens the store described by the flags for the duration of the
// action.
func withStore(action storeAction) cli.Action {
	return func(flags cli.Flags) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}

		store, err := controller.Open(cfg)
		if err != nil {
			return xerrors.Errorf("failed to open store: %v", err)
		}

		store.Watch(logObserver{})

		err = action(flags, store)

		closeErr := store.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}

		if err != nil {
			return err
		}

		if cfg.Metrics {
			err = writeMetrics(printer)
			if err != nil {
				return xerrors.Errorf("failed to write metrics: %v", err)
			}
		}

		return nil
	}
}

// logObserver reports the keys changed by a commit, which are the settings
// whose consumers must be reloaded.
//
// - implements watch.Observer
type logObserver struct{}

// NotifyCallback implements watch.Observer.
func (logObserver) NotifyCallback(event watch.Event) {
	bottlerocket.Logger.Info().Strs("keys", event.Committed.Names()).
		Msg("settings changed")
}

// loadConfig reads the config file, if any, and applies the flags on top of
// it.
func loadConfig(flags cli.Flags) (controller.Config, error) {
	cfg := controller.DefaultConfig()

	path := flags.Path(flagConfig)
	if path != "" {
		var err error
		cfg, err = controller.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}

	if flags.String(flagBackend) != "" {
		cfg.Backend = flags.String(flagBackend)
	}

	if flags.Path(flagPath) != "" {
		cfg.Path = flags.Path(flagPath)
	}

	if flags.Bool(flagMetrics) {
		cfg.Metrics = true
	}

	return cfg, nil
}

func committedOf(flags cli.Flags) datastore.Committed {
	if flags.Bool(flagPending) {
		return datastore.Pending
	}

	return datastore.Live
}

// getAction prints the settings under the optional prefix as a JSON tree.
func getAction(flags cli.Flags, store datastore.DataStore) error {
	prefix := ""
	if len(flags.Args()) > 0 {
		prefix = flags.Args()[0]
	}

	values, err := datastore.GetPrefix(store, prefix, committedOf(flags))
	if err != nil {
		return xerrors.Errorf("failed to read settings: %w", err)
	}

	tree, err := serialization.FlatToTree(values)
	if err != nil {
		return xerrors.Errorf("failed to build tree: %w", err)
	}

	return printJSON(tree)
}

// setAction writes the settings of the JSON tree given as argument.
func setAction(flags cli.Flags, store datastore.DataStore) error {
	args := flags.Args()
	if len(args) != 1 {
		return xerrors.New("expected a single JSON tree")
	}

	var tree serialization.Tree

	err := decodeJSON(args[0], &tree)
	if err != nil {
		return err
	}

	pairs, err := serialization.TreeToFlat(tree)
	if err != nil {
		return xerrors.Errorf("invalid tree: %w", err)
	}

	committed := datastore.Pending
	if flags.Bool(flagLive) {
		committed = datastore.Live
	}

	provenance := datastore.ProvenanceUser
	if flags.Bool(flagDefault) {
		provenance = datastore.ProvenanceDefault
	}

	// The batch is validated before the provenance is recorded, and the
	// provenance before the values, so that no value is written without it.
	existing, err := store.ListPopulatedKeys("", committed)
	if err != nil {
		return xerrors.Errorf("failed to list settings: %w", err)
	}

	pairs, err = datastore.ValidateWrite(pairs, existing)
	if err != nil {
		return xerrors.Errorf("failed to write settings: %w", err)
	}

	keys := make(datastore.KeySet, len(pairs))
	for key := range pairs {
		keys.Add(key)
	}

	for _, key := range keys.Sorted() {
		err = datastore.SetProvenance(store, key, provenance, committed)
		if err != nil {
			return xerrors.Errorf("failed to mark '%s': %w", key.Name(), err)
		}
	}

	err = store.SetKeys(pairs, committed)
	if err != nil {
		return xerrors.Errorf("failed to write settings: %w", err)
	}

	bottlerocket.Logger.Debug().Int("keys", len(pairs)).
		Str("version", committed.String()).Msg("settings written")

	return nil
}

// commitAction commits the pending version and prints the committed keys.
func commitAction(flags cli.Flags, store datastore.DataStore) error {
	keys, err := store.Commit()
	if err != nil {
		return xerrors.Errorf("failed to commit: %w", err)
	}

	return printJSON(keys.Names())
}

// deletePendingAction drops the pending version and prints the removed keys.
func deletePendingAction(flags cli.Flags, store datastore.DataStore) error {
	keys, err := store.DeletePending()
	if err != nil {
		return xerrors.Errorf("failed to delete pending version: %w", err)
	}

	return printJSON(keys.Names())
}

func metadataGetAction(flags cli.Flags, store datastore.DataStore) error {
	dataKey, metadataKey, err := metadataArgs(flags.Args(), 2)
	if err != nil {
		return err
	}

	value, err := store.GetMetadata(metadataKey, dataKey, committedOf(flags))
	if err != nil {
		return xerrors.Errorf("failed to read metadata: %w", err)
	}

	return printJSON(value)
}

func metadataSetAction(flags cli.Flags, store datastore.DataStore) error {
	dataKey, metadataKey, err := metadataArgs(flags.Args(), 3)
	if err != nil {
		return err
	}

	var value interface{}

	err = decodeJSON(flags.Args()[2], &value)
	if err != nil {
		return err
	}

	err = store.SetMetadata(metadataKey, dataKey, value, committedOf(flags))
	if err != nil {
		return xerrors.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// metadataListAction prints, for every setting, the sorted names of its
// metadata.
func metadataListAction(flags cli.Flags, store datastore.DataStore) error {
	prefix := ""
	if len(flags.Args()) > 0 {
		prefix = flags.Args()[0]
	}

	metadata, err := store.ListPopulatedMetadata(prefix, committedOf(flags))
	if err != nil {
		return xerrors.Errorf("failed to list metadata: %w", err)
	}

	res := make(map[string][]string, len(metadata))
	for key, names := range metadata {
		res[key.Name()] = names.Names()
	}

	return printJSON(res)
}

func metadataArgs(args []string, expected int) (datastore.Key, datastore.Key, error) {
	if len(args) != expected {
		return datastore.Key{}, datastore.Key{},
			xerrors.Errorf("expected %d arguments, got %d", expected, len(args))
	}

	dataKey, err := datastore.NewKey(datastore.DataKey, args[0])
	if err != nil {
		return datastore.Key{}, datastore.Key{}, err
	}

	metadataKey, err := datastore.NewKey(datastore.MetaKey, args[1])
	if err != nil {
		return datastore.Key{}, datastore.Key{}, err
	}

	return dataKey, metadataKey, nil
}

// decodeJSON decodes the document and keeps the numbers exact.
func decodeJSON(doc string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()

	err := dec.Decode(v)
	if err != nil {
		return xerrors.Errorf("failed to decode JSON: %v", err)
	}

	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to encode JSON: %v", err)
	}

	fmt.Fprintln(out, string(data))

	return nil
}

// writeMetrics writes the current value of the collectors in the Prometheus
// text format, sorted by name.
func writeMetrics(w io.Writer) error {
	registry := prometheus.NewRegistry()

	for _, c := range bottlerocket.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	families, err := registry.Gather()
	if err != nil {
		return xerrors.Errorf("failed to gather: %v", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.FmtText)

	for _, family := range families {
		err = enc.Encode(family)
		if err != nil {
			return xerrors.Errorf("failed to encode '%s': %v", family.GetName(), err)
		}
	}

	return nil
}
