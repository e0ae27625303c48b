package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yungbote/draftbridge-backend/internal/ingestion/chunker"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/extractor"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text from a local file",
	Long:  `Runs the material extractor on a local file and prints its metadata and text.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Extract and chunk a local file",
	Long:  `Extracts a local file and splits the text the way material indexing does.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var (
	pdfToTextPath string
	extractQuiet  bool
	chunkSize     int
	chunkOverlap  int
	chunkCount    bool
)

func init() {
	extractCmd.Flags().StringVar(&pdfToTextPath, "pdftotext", "", "Path to the pdftotext binary")
	extractCmd.Flags().BoolVarP(&extractQuiet, "meta", "m", false, "Print metadata only")

	chunkCmd.Flags().StringVar(&pdfToTextPath, "pdftotext", "", "Path to the pdftotext binary")
	chunkCmd.Flags().IntVar(&chunkSize, "size", chunker.DefaultTargetSize, "Target chunk size in characters")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", chunker.DefaultOverlap, "Overlap budget in characters")
	chunkCmd.Flags().BoolVarP(&chunkCount, "count", "c", false, "Print the chunk count only")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(chunkCmd)
}

func extractFile(ctx context.Context, path string) (extractor.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extractor.Result{}, err
	}
	log, err := newLogger()
	if err != nil {
		return extractor.Result{}, err
	}
	defer log.Sync()

	ex := extractor.New(log, extractor.Config{PDFToTextPath: pdfToTextPath})
	res := ex.Extract(ctx, data, filepath.Base(path))
	if res.Failed() {
		return res, fmt.Errorf("extract %s: %s", filepath.Base(path), res.Error())
	}
	return res, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	res, err := extractFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", heading("file:"), filepath.Base(args[0]))
	fmt.Fprintf(out, "%s %d\n", heading("pages:"), res.PageCount)
	fmt.Fprintf(out, "%s %d\n", heading("chars:"), len([]rune(res.Text)))
	keys := make([]string, 0, len(res.Metadata))
	for k := range res.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s %s\n", heading(k+":"), res.Metadata[k])
	}
	if !extractQuiet {
		fmt.Fprintln(out)
		fmt.Fprintln(out, res.Text)
	}
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return fmt.Errorf("invalid chunking: size=%d overlap=%d", chunkSize, chunkOverlap)
	}
	res, err := extractFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	chunks := chunker.Chunk(res.Text, chunker.Options{TargetSize: chunkSize, Overlap: chunkOverlap})

	out := cmd.OutOrStdout()
	if chunkCount {
		fmt.Fprintf(out, "%d\n", len(chunks))
		return nil
	}
	for i, c := range chunks {
		fmt.Fprintf(out, "%s (%d chars)\n%s\n\n", heading(fmt.Sprintf("chunk %d", i)), len([]rune(c)), c)
	}
	fmt.Fprintf(out, "%s %d chunks\n", success("done:"), len(chunks))
	return nil
}
