package narrative

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IconInfo describes how to draw an app's icon: an image at URL, or a named
// glyph on a colored background.
type IconInfo struct {
	IsImage bool
	URL     string
	Icon    string
	Color   string
}

// DefaultIcon is drawn whenever icon metadata is missing or cannot be fetched.
var DefaultIcon = IconInfo{Icon: "cube", Color: "#0d47a1"}

// Icons looks up icon metadata for an app at a release tag.
type Icons interface {
	IconMetadata(ctx context.Context, appID, tag string) (IconInfo, error)
}

// ResolveIcon returns the icon for an app, substituting DefaultIcon for
// lookup failures and incomplete metadata. It never fails.
func ResolveIcon(ctx context.Context, icons Icons, log *zap.Logger, appID, tag string) IconInfo {
	info, err := icons.IconMetadata(ctx, appID, tag)
	if err != nil {
		log.Warn("icon lookup failed, using default",
			zap.String("app", appID), zap.String("tag", tag), zap.Error(err))
		return DefaultIcon
	}
	if info.IsImage && info.URL != "" {
		return info
	}
	if info.Icon == "" {
		info.Icon = DefaultIcon.Icon
	}
	if info.Color == "" {
		info.Color = DefaultIcon.Color
	}
	info.IsImage = false
	info.URL = ""
	return info
}

// LoadDetail gathers a Narrative's summary, sharing, data objects and app
// icons. Icon failures are absorbed by ResolveIcon; catalog failures are returned.
func LoadDetail(ctx context.Context, catalog Catalog, icons Icons, log *zap.Logger, n Narrative) (Detail, error) {
	var (
		summary Summary
		shared  []string
		objects []DataObject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = catalog.Summary(gctx, n)
		return err
	})
	g.Go(func() (err error) {
		shared, err = catalog.SharedWith(gctx, n)
		return err
	})
	g.Go(func() (err error) {
		objects, err = catalog.DataObjects(gctx, n.WorkspaceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}

	apps := make([]App, len(summary.Apps))
	var ig errgroup.Group
	ig.SetLimit(4)
	for i, ref := range summary.Apps {
		ig.Go(func() error {
			apps[i] = App{ID: ref.ID, Tag: ref.Tag, Icon: ResolveIcon(ctx, icons, log, ref.ID, ref.Tag)}
			return nil
		})
	}
	_ = ig.Wait()

	return Detail{
		Narrative:  n,
		Version:    summary.Version,
		Created:    summary.Created,
		Cells:      summary.Cells,
		SharedWith: shared,
		Apps:       apps,
		Objects:    objects,
	}, nil
}
