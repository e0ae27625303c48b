package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const slideSeparator = "\n\n===== Next Slide =====\n\n"

func extractDOCX(data []byte) Result {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failed(fmt.Errorf("docx: not a zip container: %w", err))
	}
	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return failed(fmt.Errorf("docx: %w", err))
	}
	paras := xmlParagraphs(body)

	meta := map[string]string{}
	if core, err := readZipFile(zr, "docProps/core.xml"); err == nil {
		for k, v := range coreProperties(core) {
			meta[k] = v
		}
	}
	return Result{
		Text:      strings.Join(paras, "\n\n"),
		Metadata:  meta,
		PageCount: atLeastOne(len(paras) / 10),
	}
}

func extractPPTX(data []byte) Result {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failed(fmt.Errorf("pptx: not a zip container: %w", err))
	}

	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(f.Name, "ppt/slides/slide"), ".xml")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		slides = append(slides, slide{n: n, file: f})
	}
	if len(slides) == 0 {
		return failed(errors.New("pptx: no slides found"))
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		b, err := readZip(s.file)
		if err != nil {
			return failed(fmt.Errorf("pptx: %s: %w", s.file.Name, err))
		}
		texts = append(texts, strings.Join(nonEmpty(xmlParagraphs(b)), "\n"))
	}
	return Result{
		Text:      strings.Join(texts, slideSeparator),
		Metadata:  map[string]string{"slide_count": itoa(len(slides))},
		PageCount: len(slides),
	}
}

// xmlParagraphs walks WordprocessingML or DrawingML and returns the text of
// every <p> element, concatenating its <t> runs.
func xmlParagraphs(b []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				if depth == 0 {
					cur.Reset()
				}
				depth++
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					cur.WriteString(v)
				}
			case "tab":
				cur.WriteString("\t")
			case "br":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Local == "p" && depth > 0 {
				depth--
				if depth == 0 {
					out = append(out, strings.TrimSpace(cur.String()))
				}
			}
		}
	}
	return out
}

type coreXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

func coreProperties(b []byte) map[string]string {
	var core coreXML
	if err := xml.Unmarshal(b, &core); err != nil {
		return nil
	}
	return map[string]string{
		"title":    strings.TrimSpace(core.Title),
		"author":   strings.TrimSpace(core.Creator),
		"created":  strings.TrimSpace(core.Created),
		"modified": strings.TrimSpace(core.Modified),
	}
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZip(f)
		}
	}
	return nil, fmt.Errorf("missing %s", name)
}

func readZip(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
