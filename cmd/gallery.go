/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samajportal/apiserver/internal/db"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/storage"
	"github.com/samajportal/apiserver/internal/store"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage gallery images",
}

var (
	galleryFile  string
	galleryTitle string
	galleryAlbum string
	galleryThumb string
)

var galleryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Upload an image to object storage and list it in the gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if galleryFile == "" {
			return errors.New("--file is required")
		}
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = dbConn.Close() }()

		up, closeFiles, err := openUpload()
		if err != nil {
			return err
		}
		defer closeFiles()

		gallery := services.NewGalleryService(store.NewGalleryRepository(dbConn), objects, logger)
		item, err := gallery.Add(ctx, up)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added gallery item %d (%s)\n", item.ID, item.Title)
		return nil
	},
}

func openUpload() (services.Upload, func(), error) {
	var files []*os.File
	closeFiles := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	open := func(path string) (*os.File, int64, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			return nil, 0, err
		}
		return f, info.Size(), nil
	}

	body, size, err := open(galleryFile)
	if err != nil {
		closeFiles()
		return services.Upload{}, nil, err
	}
	title := galleryTitle
	if title == "" {
		title = filepath.Base(galleryFile)
	}
	up := services.Upload{
		Title:       title,
		Album:       galleryAlbum,
		Filename:    filepath.Base(galleryFile),
		ContentType: mime.TypeByExtension(filepath.Ext(galleryFile)),
		Size:        size,
		Body:        body,
	}

	if galleryThumb != "" {
		thumb, thumbSize, err := open(galleryThumb)
		if err != nil {
			closeFiles()
			return services.Upload{}, nil, err
		}
		up.Thumbnail = thumb
		up.ThumbnailSize = thumbSize
	}
	return up, closeFiles, nil
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryAddCmd)

	galleryAddCmd.Flags().StringVar(&galleryFile, "file", "", "image file to upload")
	galleryAddCmd.Flags().StringVar(&galleryTitle, "title", "", "display title (defaults to the file name)")
	galleryAddCmd.Flags().StringVar(&galleryAlbum, "album", "", "album name")
	galleryAddCmd.Flags().StringVar(&galleryThumb, "thumb", "", "optional thumbnail image")
}
