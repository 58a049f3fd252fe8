package render

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
)

type memSink struct {
	files map[string][]byte
	order []string
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}}
}

func (s *memSink) Write(relativePath string, data []byte) error {
	s.files[relativePath] = data
	s.order = append(s.order, relativePath)
	return nil
}

func testSnapshot() *ir.Snapshot {
	table := ir.NewTable()

	strId := table.Alloc("GetDeviceId", ir.Origin{Pointer: "/paths/~1devices~1{id}/get/parameters/0/schema"})
	strEntry := table.Get(strId)
	strEntry.Kind = ir.KindPrimitive
	strEntry.Prim = ir.Primitive{Type: "string"}

	deviceId := table.Alloc("Device", ir.Origin{Pointer: "/components/schemas/Device"})
	device := table.Get(deviceId)
	device.Kind = ir.KindStruct
	device.Docs = "A registered device."
	device.Fields = []ir.Field{
		{Name: "id", WireName: "id", Typ: strId},
		{Name: "label", WireName: "label", Typ: strId, Optional: true},
	}

	unitId := table.Alloc("Unit", ir.Origin{Role: "opaque", Synthetic: true})
	unit := table.Get(unitId)
	unit.Kind = ir.KindOpaque
	unit.Opaque = "struct{}"

	op := &ir.Operation{
		ID:           "GetDevice",
		Method:       "GET",
		PathTemplate: "/devices/{id}",
		PathParams:   []ir.Param{{Name: "id", WireName: "id", Typ: strId, Required: true}},
		QueryParams:  []ir.Param{{Name: "verbose", WireName: "verbose", Typ: strId}},
		Responses: []ir.ResponseVariant{
			{Status: 200, ContentType: "application/json", Typ: deviceId},
		},
		ReturnType: deviceId,
		Docs:       "Fetch one device.",
	}

	return &ir.Snapshot{
		Types:      table.All(),
		Operations: []*ir.Operation{op},
		RootModule: "devices-client",
	}
}

func TestEmit_FileSet(t *testing.T) {
	sink := newMemSink()
	driver := NewDriver(testSnapshot(), sink, Meta{Name: "devices-client", Version: "1.0.0", BaseURL: "https://api.example.com"}, ir.NewDiagnosticBag())

	files, err := driver.Emit(context.Background())
	require.NoError(t, err)

	assert.Contains(t, files, "models/device.go")
	assert.Contains(t, files, "builders/get_device.go")
	assert.Contains(t, files, "client.go")
	assert.Contains(t, files, "doc.go")
	assert.Contains(t, files, "go.mod")
	assert.Contains(t, files, "manifest.json")

	// The interned inline primitive emits no file of its own.
	for _, f := range files {
		assert.NotContains(t, f, "get_device_id")
	}
}

func TestEmit_ModelContent(t *testing.T) {
	sink := newMemSink()
	driver := NewDriver(testSnapshot(), sink, Meta{Name: "devices-client", Version: "1.0.0"}, ir.NewDiagnosticBag())

	_, err := driver.Emit(context.Background())
	require.NoError(t, err)

	model := string(sink.files["models/device.go"])
	assert.Contains(t, model, "package models")
	assert.Contains(t, model, "// A registered device.")
	assert.Contains(t, model, "type Device struct {")
	assert.Contains(t, model, "Id string `json:\"id\"`")
	assert.Contains(t, model, "Label *string `json:\"label,omitempty\"`")
}

func TestEmit_BuilderContent(t *testing.T) {
	sink := newMemSink()
	driver := NewDriver(testSnapshot(), sink, Meta{Name: "devices-client", Version: "1.0.0"}, ir.NewDiagnosticBag())

	_, err := driver.Emit(context.Background())
	require.NoError(t, err)

	builder := string(sink.files["builders/get_device.go"])
	assert.Contains(t, builder, "package builders")
	assert.Contains(t, builder, "type GetDeviceBuilder struct {")
	assert.Contains(t, builder, "func GetDevice(client *devicesclient.Client, id string) *GetDeviceBuilder")
	assert.Contains(t, builder, "func (b *GetDeviceBuilder) Verbose(v string) *GetDeviceBuilder")
	assert.Contains(t, builder, "func (b *GetDeviceBuilder) Send(ctx context.Context) (models.Device, error)")
	assert.Contains(t, builder, `"devices-client/models"`)
}

func TestEmit_ClientContent(t *testing.T) {
	sink := newMemSink()
	driver := NewDriver(testSnapshot(), sink, Meta{Name: "devices-client", Version: "1.0.0", BaseURL: "https://api.example.com"}, ir.NewDiagnosticBag())

	_, err := driver.Emit(context.Background())
	require.NoError(t, err)

	client := string(sink.files["client.go"])
	assert.Contains(t, client, "package devicesclient")
	assert.Contains(t, client, `const DefaultBaseURL = "https://api.example.com"`)
	assert.Contains(t, client, "func NewClient(")
	assert.Contains(t, client, "WithBearerToken")
	assert.Contains(t, client, "WithRetry")
	assert.Contains(t, client, "WithCacheTTL")
}

func TestEmit_Manifest(t *testing.T) {
	sink := newMemSink()
	driver := NewDriver(testSnapshot(), sink, Meta{Name: "devices-client", Version: "2.3.4"}, ir.NewDiagnosticBag())

	files, err := driver.Emit(context.Background())
	require.NoError(t, err)

	var manifest struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Files   []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(sink.files["manifest.json"], &manifest))

	assert.Equal(t, "devices-client", manifest.Name)
	assert.Equal(t, "2.3.4", manifest.Version)
	assert.Len(t, manifest.Files, len(files)-1, "manifest lists every file except itself")
	for _, f := range manifest.Files {
		assert.Contains(t, sink.files, f)
	}
}

func TestEmit_Deterministic(t *testing.T) {
	first := newMemSink()
	second := newMemSink()

	_, err := NewDriver(testSnapshot(), first, Meta{Name: "x", Version: "1"}, ir.NewDiagnosticBag()).Emit(context.Background())
	require.NoError(t, err)
	_, err = NewDriver(testSnapshot(), second, Meta{Name: "x", Version: "1"}, ir.NewDiagnosticBag()).Emit(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(first.files), len(second.files))
	for path, data := range first.files {
		assert.Equal(t, string(data), string(second.files[path]), "file %s must be byte-identical", path)
	}
}

func TestEmit_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newMemSink()
	_, err := NewDriver(testSnapshot(), sink, Meta{Name: "x", Version: "1"}, ir.NewDiagnosticBag()).Emit(ctx)
	assert.Error(t, err)
	assert.Empty(t, sink.order, "no writes start after cancellation")
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "devicesclient", packageName("devices-client"))
	assert.Equal(t, "client", packageName(""))
	assert.Equal(t, "c2fa", packageName("2fa"))
}

func TestEmit_MultiBodyBuildsOneBuilderPerContentType(t *testing.T) {
	table := ir.NewTable()

	strId := table.Alloc("CreateNoteBodyPlain", ir.Origin{Pointer: "/paths/~1notes/post/requestBody/content/text~1plain/schema"})
	str := table.Get(strId)
	str.Kind = ir.KindPrimitive
	str.Prim = ir.Primitive{Type: "string"}

	objId := table.Alloc("CreateNoteBodyJson", ir.Origin{Pointer: "/paths/~1notes/post/requestBody/content/application~1json/schema"})
	obj := table.Get(objId)
	obj.Kind = ir.KindStruct
	obj.Fields = []ir.Field{{Name: "text", WireName: "text", Typ: strId, Optional: true}}

	unitId := table.Alloc("Unit", ir.Origin{Role: "opaque", Synthetic: true})
	unit := table.Get(unitId)
	unit.Kind = ir.KindOpaque
	unit.Opaque = "struct{}"

	op := &ir.Operation{
		ID:           "CreateNote",
		Method:       "POST",
		PathTemplate: "/notes",
		Body: []ir.BodyVariant{
			{ContentType: "application/json", Typ: objId},
			{ContentType: "text/plain", Typ: strId},
		},
		ReturnType: unitId,
	}
	snap := &ir.Snapshot{Types: table.All(), Operations: []*ir.Operation{op}, RootModule: "notes"}

	sink := newMemSink()
	_, err := NewDriver(snap, sink, Meta{Name: "notes", Version: "1"}, ir.NewDiagnosticBag()).Emit(context.Background())
	require.NoError(t, err)

	jsonBuilder := string(sink.files["builders/create_note_json.go"])
	assert.Contains(t, jsonBuilder, "type CreateNoteJsonBuilder struct {")
	assert.Contains(t, jsonBuilder, "json.Marshal(b.body)")

	plainBuilder := string(sink.files["builders/create_note_plain.go"])
	assert.Contains(t, plainBuilder, "type CreateNotePlainBuilder struct {")
	assert.Contains(t, plainBuilder, `req.ContentType = "text/plain"`)
}

func TestEmit_DiscriminatedSumModel(t *testing.T) {
	table := ir.NewTable()

	catId := table.Alloc("Cat", ir.Origin{Pointer: "/components/schemas/Cat"})
	cat := table.Get(catId)
	cat.Kind = ir.KindStruct

	dogId := table.Alloc("Dog", ir.Origin{Pointer: "/components/schemas/Dog"})
	dog := table.Get(dogId)
	dog.Kind = ir.KindStruct

	petId := table.Alloc("Pet", ir.Origin{Pointer: "/components/schemas/Pet"})
	pet := table.Get(petId)
	pet.Kind = ir.KindSum
	pet.Discriminator = "kind"
	pet.Variants = []ir.Variant{
		{Name: "Cat", Typ: catId, WireValue: "cat"},
		{Name: "Dog", Typ: dogId, WireValue: "dog"},
	}

	snap := &ir.Snapshot{Types: table.All(), RootModule: "pets"}

	sink := newMemSink()
	_, err := NewDriver(snap, sink, Meta{Name: "pets", Version: "1"}, ir.NewDiagnosticBag()).Emit(context.Background())
	require.NoError(t, err)

	model := string(sink.files["models/pet.go"])
	assert.Contains(t, model, "type Pet struct {")
	assert.Contains(t, model, "Cat *Cat `json:\"-\"`")
	assert.Contains(t, model, "func (v Pet) MarshalJSON() ([]byte, error)")
	assert.Contains(t, model, "func (v *Pet) UnmarshalJSON(data []byte) error")
	assert.Contains(t, model, `Tag string `+"`"+`json:"kind"`+"`")
	assert.Contains(t, model, `case "cat":`)
}

func TestEmit_UnitReturn(t *testing.T) {
	table := ir.NewTable()
	unitId := table.Alloc("Unit", ir.Origin{Role: "opaque", Synthetic: true})
	unit := table.Get(unitId)
	unit.Kind = ir.KindOpaque
	unit.Opaque = "struct{}"

	op := &ir.Operation{
		ID:           "Ping",
		Method:       "GET",
		PathTemplate: "/ping",
		ReturnType:   unitId,
	}
	snap := &ir.Snapshot{Types: table.All(), Operations: []*ir.Operation{op}, RootModule: "x"}

	sink := newMemSink()
	_, err := NewDriver(snap, sink, Meta{Name: "x", Version: "1"}, ir.NewDiagnosticBag()).Emit(context.Background())
	require.NoError(t, err)

	builder := string(sink.files["builders/ping.go"])
	assert.Contains(t, builder, "func (b *PingBuilder) Send(ctx context.Context) error")
	assert.False(t, strings.Contains(builder, "var out"), "unit returns carry no out value")
}
