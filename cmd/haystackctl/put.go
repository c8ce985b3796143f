package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lyzr/haystack/common/clients"
	"github.com/lyzr/haystack/common/db"
	"github.com/lyzr/haystack/common/models"
	"github.com/lyzr/haystack/common/store"
)

const (
	cookieLength     = 8
	cookieAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxLogicalVolume = 8
)

type putOptions struct {
	machineID     int
	logicalVolume string
	photoID       string
	cookie        string
	blobID        string
	offset        int
	variants      [3]string
	cacheURL      string
	directoryURL  string
}

func newPutCmd() *cobra.Command {
	opts := &putOptions{}

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Append a photo blob and index it on a store partition",
		Long: `Writes a blob holding up to three variants (thumbnail, medium, full) and an
index row pointing (photo_id, cookie) at one of them. A random cookie is
generated when none is given. With --cache-url and --directory-url the cache
and directory servers are notified once the write commits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return runPut(ctx, cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.machineID, "machine", 0, "store partition (machine_id)")
	f.StringVar(&opts.logicalVolume, "logical-volume", "", "logical volume (random 1-8 when empty)")
	f.StringVar(&opts.photoID, "photo-id", "", "photo id")
	f.StringVar(&opts.cookie, "cookie", "", "cookie (random when empty)")
	f.StringVar(&opts.blobID, "blob-id", "", "blob id (random UUID when empty)")
	f.IntVar(&opts.offset, "offset", int(models.NeedleFull), "needle offset served for this identity (1-3)")
	f.StringVar(&opts.variants[0], "variant1", "", "file holding variant 1 (thumbnail)")
	f.StringVar(&opts.variants[1], "variant2", "", "file holding variant 2 (medium)")
	f.StringVar(&opts.variants[2], "variant3", "", "file holding variant 3 (full)")
	f.StringVar(&opts.cacheURL, "cache-url", "", "cache server base URL to pre-warm")
	f.StringVar(&opts.directoryURL, "directory-url", "", "directory server base URL to register the location with")
	_ = cmd.MarkFlagRequired("photo-id")

	return cmd
}

func runPut(ctx context.Context, cmd *cobra.Command, opts *putOptions) error {
	offset := models.NeedleOffset(opts.offset)
	if !offset.Valid() {
		return fmt.Errorf("--offset must be 1, 2 or 3")
	}

	blob, err := readVariants(opts.variants)
	if err != nil {
		return err
	}
	served, _ := blob.Needle(offset)
	if len(served) == 0 {
		return fmt.Errorf("--variant%d is required for --offset %d", offset, offset)
	}
	blob.BlobID = opts.blobID

	cookie := opts.cookie
	if cookie == "" {
		if cookie, err = newCookie(); err != nil {
			return err
		}
	}
	lv := opts.logicalVolume
	if lv == "" {
		lv = strconv.Itoa(mrand.IntN(maxLogicalVolume) + 1)
	}
	identity := models.NewPhotoIdentity(opts.photoID, cookie)

	cfg := application.cfg.Store
	if opts.machineID < 0 || opts.machineID >= len(cfg.Partitions) {
		return fmt.Errorf("machine %d outside %d configured partitions", opts.machineID, len(cfg.Partitions))
	}

	d, err := db.New(ctx, cfg, cfg.Partitions[opts.machineID], application.log)
	if err != nil {
		return err
	}
	defer d.Close()

	rec, err := store.NewWriter(d).Put(ctx, identity, blob, offset)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "photo_id=%s cookie=%s blob_id=%s offset=%d machine=%d logical_volume=%s\n",
		rec.PhotoID, rec.Cookie, rec.BlobID, rec.NeedleOffset, opts.machineID, lv)

	if opts.cacheURL != "" {
		c := clients.NewCacheServerClient(opts.cacheURL, application.log)
		if err := c.CacheIt(ctx, opts.machineID, lv, identity, served); err != nil {
			return err
		}
	}
	if opts.directoryURL != "" {
		dir := clients.NewDirectoryClient(opts.directoryURL, application.log)
		entry, err := dir.Register(ctx, opts.machineID, lv, identity)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, entry.URL)
	}
	return nil
}

func readVariants(paths [3]string) (models.BlobRecord, error) {
	var data [3][]byte
	for i, path := range paths {
		if path == "" {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return models.BlobRecord{}, fmt.Errorf("read variant %d: %w", i+1, err)
		}
		data[i] = b
	}
	return models.BlobRecord{Variant1: data[0], Variant2: data[1], Variant3: data[2]}, nil
}

// newCookie returns a random alphanumeric cookie
func newCookie() (string, error) {
	buf := make([]byte, cookieLength)
	limit := big.NewInt(int64(len(cookieAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate cookie: %w", err)
		}
		buf[i] = cookieAlphabet[n.Int64()]
	}
	return string(buf), nil
}
