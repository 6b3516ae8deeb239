// chart/loader.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package chart loads chart definitions and the digitized projects they
// refer to from local files or remote storage.
package chart

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmp/perfchart/chase"
	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/util"
	"github.com/mmp/perfchart/wpd"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFormat    = errors.New("Unknown file format")
	ErrUnsupportedChart = errors.New("Unsupported chart type.")
)

// Fetcher retrieves the contents of a location, which may be a URL or a
// filesystem path.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// storageFetcher fetches from any storage afs supports: local files,
// http(s), and the object stores it has been built with.
type storageFetcher struct {
	fs afs.Service
}

func (f storageFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !isURL(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, err
		}
		location = abs
	}
	return f.fs.DownloadWithURL(ctx, location)
}

// Meta describes where a chart came from.
type Meta struct {
	Src   string `json:"src"`
	Image Image  `json:"image"`
}

type Image struct {
	Src  string `json:"src"`
	Size [2]int `json:"size"`
}

// Chart is a loaded chart along with its metadata.
type Chart struct {
	*chase.Chart
	Meta Meta
}

// Loader loads charts. Projects are cached in memory, and optionally on
// disk so that charts can still be loaded when their project's location
// is unreachable. A Loader is safe for concurrent use.
type Loader struct {
	base     string
	fetcher  Fetcher
	cacheDir string
	ttl      time.Duration
	lg       *log.Logger

	projects *expirable.LRU[string, *wpd.Project]
}

type LoaderOption func(*Loader)

func WithFetcher(f Fetcher) LoaderOption {
	return func(l *Loader) { l.fetcher = f }
}

// WithCacheDir enables the on-disk project cache in the given directory.
func WithCacheDir(dir string) LoaderOption {
	return func(l *Loader) { l.cacheDir = dir }
}

func WithLogger(lg *log.Logger) LoaderOption {
	return func(l *Loader) { l.lg = lg }
}

func WithProjectCacheTTL(ttl time.Duration) LoaderOption {
	return func(l *Loader) { l.ttl = ttl }
}

// NewLoader returns a Loader that resolves relative chart locations
// against base, which may be a directory or a URL.
func NewLoader(base string, opts ...LoaderOption) *Loader {
	l := &Loader{
		base:    base,
		fetcher: storageFetcher{fs: afs.New()},
		ttl:     time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.projects = expirable.NewLRU[string, *wpd.Project](32, nil, l.ttl)
	return l
}

// Load fetches and decodes the chart at src along with its project.
func (l *Loader) Load(ctx context.Context, src string) (*Chart, error) {
	loc, err := resolveIn(l.base, src)
	if err != nil {
		return nil, err
	}

	doc, err := l.fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if raw, err := doc.generic(); err != nil {
		return nil, err
	} else if !chase.IsChartDef(raw) {
		return nil, fmt.Errorf("%s: %w", loc, ErrUnsupportedChart)
	}
	var def chase.ChartDef
	if err := decode(l, doc, &def, true); err != nil {
		return nil, err
	}

	projLoc, err := resolveRelative(loc, def.Project.Src)
	if err != nil {
		return nil, err
	}
	proj, err := l.project(ctx, projLoc)
	if err != nil {
		return nil, err
	}

	c, err := chase.NewChart(&def, proj, l.lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	meta := Meta{Src: loc, Image: Image{Size: def.Image.Size}}
	if def.Image.Src != "" {
		if meta.Image.Src, err = resolveRelative(loc, def.Image.Src); err != nil {
			return nil, err
		}
	}

	l.lg.Info("loaded chart", "src", loc, "project", projLoc, "inputs", len(c.Inputs()))
	return &Chart{Chart: c, Meta: meta}, nil
}

func (l *Loader) project(ctx context.Context, loc string) (*wpd.Project, error) {
	if p, ok := l.projects.Get(loc); ok {
		return p, nil
	}

	def, err := l.projectDef(ctx, loc)
	if err != nil {
		return nil, err
	}
	p, err := wpd.NewProject(def, l.lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	l.projects.Add(loc, p)
	return p, nil
}

func (l *Loader) projectDef(ctx context.Context, loc string) (*wpd.ProjectDef, error) {
	def, err := l.fetchProjectDef(ctx, loc)
	if err == nil {
		if l.cacheDir != "" {
			if err := util.CacheStoreObject(l.cacheDir, loc, def); err != nil {
				l.lg.Warnf("%s: unable to cache project: %v", loc, err)
			}
		}
		return def, nil
	}

	if l.cacheDir != "" {
		var cached wpd.ProjectDef
		if t, cerr := util.CacheRetrieveObject(l.cacheDir, loc, &cached); cerr == nil {
			l.lg.Warn("using cached project", "location", loc, "error", err, "cached", t)
			return &cached, nil
		}
	}
	return nil, err
}

func (l *Loader) fetchProjectDef(ctx context.Context, loc string) (*wpd.ProjectDef, error) {
	doc, err := l.fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if raw, err := doc.generic(); err != nil {
		return nil, err
	} else if !wpd.IsProjectDef(raw) {
		return nil, fmt.Errorf("%s: %w: not a WebPlotDigitizer %d.%d project", loc, wpd.ErrInvalidProject,
			wpd.SupportedVersion[0], wpd.SupportedVersion[1])
	}

	var def wpd.ProjectDef
	if err := decode(l, doc, &def, false); err != nil {
		return nil, err
	}
	return &def, nil
}

// document is a fetched and decompressed file.
type document struct {
	loc string
	ext string // lower-cased extension after removing any compression suffix
	b   []byte
}

func (l *Loader) fetch(ctx context.Context, loc string) (document, error) {
	b, err := l.fetcher.Fetch(ctx, loc)
	if err != nil {
		return document{}, fmt.Errorf("%s: %w", loc, err)
	}
	name, b, err := util.DecompressByName(loc, b)
	if err != nil {
		return document{}, fmt.Errorf("%s: %w", loc, err)
	}

	doc := document{loc: loc, ext: strings.ToLower(path.Ext(name)), b: b}
	switch doc.ext {
	case ".json", ".yaml", ".yml":
		return doc, nil
	default:
		return document{}, fmt.Errorf("%s: %w %q", loc, ErrUnknownFormat, doc.ext)
	}
}

// generic decodes the document without a schema, for sniffing what kind
// of file it is.
func (d document) generic() (any, error) {
	var v any
	var err error
	if d.ext == ".json" {
		err = util.UnmarshalJSONBytes(d.b, &v)
	} else {
		err = yaml.Unmarshal(d.b, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.loc, err)
	}
	return v, nil
}

// decode decodes the document into out. If check is set, JSON is also
// checked for unexpected keys.
func decode[T any](l *Loader, d document, out *T, check bool) error {
	var err error
	if d.ext == ".json" {
		for _, dup := range util.FindDuplicateJSONKeys(d.b) {
			l.lg.Warnf("%s: %s", d.loc, dup)
		}
		if check {
			var e util.ErrorLogger
			util.CheckJSON[T](d.b, &e)
			if e.HaveErrors() {
				l.lg.Warnf("%s: %s", d.loc, e.String())
			}
		}
		err = util.UnmarshalJSONBytes(d.b, out)
	} else {
		err = yaml.Unmarshal(d.b, out)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", d.loc, err)
	}
	return nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	// Single-letter schemes are Windows drive letters.
	return err == nil && len(u.Scheme) > 1
}

// resolveIn returns the location of ref within the directory or URL dir.
func resolveIn(dir, ref string) (string, error) {
	if dir == "" || isURL(ref) {
		return ref, nil
	}
	if isURL(dir) {
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		return resolveURL(dir, ref)
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(dir, ref), nil
}

// resolveRelative returns the location of ref relative to the file at
// loc.
func resolveRelative(loc, ref string) (string, error) {
	if isURL(ref) {
		return ref, nil
	}
	if isURL(loc) {
		return resolveURL(loc, ref)
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(filepath.Dir(loc), ref), nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
