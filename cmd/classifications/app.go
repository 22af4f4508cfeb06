package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/FrenchMajesty/descriptor-classifier/internal/config"
	"github.com/FrenchMajesty/descriptor-classifier/internal/logger"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	_ "github.com/FrenchMajesty/descriptor-classifier/pkg/classification/file"
	_ "github.com/FrenchMajesty/descriptor-classifier/pkg/classification/sqlite"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor/pinecone"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// vectorIndex is the descriptor vector store the commands read and write
type vectorIndex interface {
	Elements(uids ...string) []descriptor.Element
	GetManyVectors(ctx context.Context, elems []descriptor.Element) ([]*vector.Array, error)
	SetVector(ctx context.Context, uid string, v vector.Array) error
	Close() error
}

// openIndex connects to the configured vector index. Replaced in tests.
var openIndex = func(cfg config.PineconeConfig, log *zerolog.Logger) (vectorIndex, error) {
	ix, err := pinecone.NewIndex(pinecone.Config{
		APIKey:    cfg.APIKey,
		Host:      cfg.Host,
		Namespace: cfg.Namespace,
		TypeName:  cfg.TypeName,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// app holds what the commands share once the configuration is loaded
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	factory *classification.Factory
	index   vectorIndex
}

func (a *app) load(flags *rootFlags, command string, logOut io.Writer) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.HumanReadable = logCfg.HumanReadable || flags.humanReadable
	log, err := logger.New(logCfg, logOut, flags.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = logger.ForCommand(log, command)
	return nil
}

// Factory returns the configured result factory
func (a *app) Factory() (*classification.Factory, error) {
	if a.factory != nil {
		return a.factory, nil
	}

	f, err := classification.FactoryFromConfig(a.cfg.Classification)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("impl", f.Implementation()).Msg("opened classification store")
	a.factory = f
	return f, nil
}

// withIndex runs fn against the configured vector index and closes the
// connection once fn returns, whether or not it failed.
func (a *app) withIndex(fn func(vectorIndex) error) (err error) {
	ix, err := a.Index()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close vector index: %w", cerr))
		}
	}()
	return fn(ix)
}

// Index returns the configured vector index, connecting on first use
func (a *app) Index() (vectorIndex, error) {
	if a.index != nil {
		return a.index, nil
	}

	ix, err := openIndex(a.cfg.Pinecone, &a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	a.index = ix
	return ix, nil
}

func (a *app) close() error {
	if a.index == nil {
		return nil
	}
	err := a.index.Close()
	a.index = nil
	return err
}
