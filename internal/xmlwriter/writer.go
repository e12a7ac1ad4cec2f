// =============================================================================
// FeliCa Ledger - XML Writer
// =============================================================================
//
// Generates an XML ledger document from a writer.Document.
//
// XML STRUCTURE:
//
//   <ledger source="card.dump" scan="..." scannedAt="2023-07-01T09:00:00Z">
//     <balance>1650</balance>
//     <transaction n="1" kind="train">
//       <date>2023-06-30</date>
//       <title>Train</title>
//       <subtitle>¥200</subtitle>
//       <category>transport</category>
//       <machineType code="0x16">Ticket Gate</machineType>
//       <processType code="0x01">Train Fare</processType>
//       <station code="0-37-13">新宿</station>
//       <tripRole>exit</tripRole>
//       <balance>1650</balance>
//       <previousBalance>1850</previousBalance>
//       <delta>-200</delta>
//     </transaction>
//   </ledger>
//
// Transactions are numbered from 1 in ledger order (most recent first).
// station, previousBalance and delta are omitted when absent.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/writer"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation. Default: "  ".
	Indent string

	// IncludeXMLDeclaration writes the <?xml ...?> line. Default: true.
	IncludeXMLDeclaration bool

	// RootElement is the root element name. Default: "ledger".
	RootElement string

	// TransactionElement is the per-transaction element. Default: "transaction".
	TransactionElement string

	// IndexAttribute is the attribute carrying the 1-based index. Default: "n".
	IndexAttribute string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "ledger",
		TransactionElement:    "transaction",
		IndexAttribute:        "n",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders doc with default options.
func Generate(doc writer.Document) ([]byte, error) {
	return GenerateWithOptions(doc, DefaultGenerateOptions())
}

// GenerateWithOptions renders doc with custom options.
func GenerateWithOptions(doc writer.Document, options GenerateOptions) ([]byte, error) {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	writeElement(&buffer, buildDocument(doc, options), options.Indent, 0)
	return buffer.Bytes(), nil
}

// XMLWriter adapts Generate to the writer.Writer interface.
type XMLWriter struct {
	Options GenerateOptions
}

// New returns an XMLWriter with default options.
func New() *XMLWriter {
	return &XMLWriter{Options: DefaultGenerateOptions()}
}

// Extension implements writer.Writer.
func (w *XMLWriter) Extension() string { return ".xml" }

// Write implements writer.Writer.
func (w *XMLWriter) Write(out io.Writer, doc writer.Document) error {
	data, err := GenerateWithOptions(doc, w.Options)
	if err != nil {
		return fmt.Errorf("failed to generate XML: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement is a generic XML element with either a text value or children.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

func buildDocument(doc writer.Document, options GenerateOptions) XMLElement {
	root := XMLElement{
		XMLName: xml.Name{Local: options.RootElement},
		Attributes: []xml.Attr{
			attr("source", doc.Source),
			attr("scan", doc.ScanID),
			attr("scannedAt", doc.ScannedAt.UTC().Format(time.RFC3339)),
		},
	}

	root.Children = append(root.Children, createSimpleElement("balance", strconv.Itoa(doc.Balance)))
	for i, row := range doc.Rows {
		root.Children = append(root.Children, buildTransactionElement(row, i+1, options))
	}

	return root
}

func buildTransactionElement(row writer.Row, n int, options GenerateOptions) XMLElement {
	element := XMLElement{
		XMLName: xml.Name{Local: options.TransactionElement},
		Attributes: []xml.Attr{
			attr(options.IndexAttribute, strconv.Itoa(n)),
			attr("kind", row.Kind),
		},
	}

	element.Children = append(element.Children,
		createSimpleElement("date", row.Date),
		createSimpleElement("title", row.Title),
		createSimpleElement("subtitle", row.Subtitle),
		createSimpleElement("category", row.Category),
		withAttr(createSimpleElement("machineType", row.MachineType), "code", row.MachineCode),
		withAttr(createSimpleElement("processType", row.ProcessType), "code", row.ProcessCode),
	)

	if row.StationCode != "" {
		element.Children = append(element.Children,
			withAttr(createSimpleElement("station", row.Station), "code", row.StationCode))
	}

	element.Children = append(element.Children,
		createSimpleElement("tripRole", row.TripRole),
		createSimpleElement("balance", strconv.Itoa(row.Balance)),
	)

	if row.PreviousBalance != nil {
		element.Children = append(element.Children,
			createSimpleElement("previousBalance", strconv.Itoa(*row.PreviousBalance)))
	}
	if row.Delta != nil {
		element.Children = append(element.Children,
			createSimpleElement("delta", strconv.Itoa(*row.Delta)))
	}

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func withAttr(e XMLElement, name, value string) XMLElement {
	e.Attributes = append(e.Attributes, attr(name, value))
	return e
}

func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// writeElement writes element and its children with indentation.
// Elements with neither value nor children are self-closing.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)
	for _, a := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

func escapeXML(s string) string {
	var buffer bytes.Buffer
	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}
	return buffer.String()
}
