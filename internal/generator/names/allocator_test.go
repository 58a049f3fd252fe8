package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
)

func newTestAllocator(cfg config.Config) (*Allocator, *ir.DiagnosticBag) {
	diags := ir.NewDiagnosticBag()
	return New(&cfg, diags), diags
}

func TestTypeName_ComponentDerivation(t *testing.T) {
	alloc, _ := newTestAllocator(config.Default())

	name := alloc.TypeName("/components/schemas/device_info", "ignored hint")
	assert.Equal(t, "DeviceInfo", name)
}

func TestTypeName_OverrideWins(t *testing.T) {
	cfg := config.Default()
	cfg.NameMapping.StructMapping["/components/schemas/Device"] = "gadget_record"
	alloc, _ := newTestAllocator(cfg)

	name := alloc.TypeName("/components/schemas/Device", "Device")
	assert.Equal(t, "GadgetRecord", name)
}

func TestTypeName_Uniquification(t *testing.T) {
	alloc, _ := newTestAllocator(config.Default())

	first := alloc.TypeName("", "Response")
	second := alloc.TypeName("", "Response")
	third := alloc.TypeName("", "Response")

	assert.Equal(t, "Response", first)
	assert.Equal(t, "Response2", second)
	assert.Equal(t, "Response3", third)
}

func TestFieldName_ReservedWordEscape(t *testing.T) {
	alloc, diags := newTestAllocator(config.Default())

	name := alloc.FieldName("/components/schemas/X", "/components/schemas/X/properties/type", "type")
	assert.Equal(t, "type_", name)
	require.Equal(t, 1, diags.Len())
}

func TestFieldName_PropertyOverride(t *testing.T) {
	cfg := config.Default()
	cfg.NameMapping.PropertyMapping["/components/schemas/X/properties/ts"] = "created_at"
	alloc, _ := newTestAllocator(cfg)

	name := alloc.FieldName("/components/schemas/X", "/components/schemas/X/properties/ts", "ts")
	assert.Equal(t, "created_at", name)
}

func TestFieldName_ScopedUniqueness(t *testing.T) {
	alloc, _ := newTestAllocator(config.Default())

	a := alloc.FieldName("scopeA", "", "id")
	b := alloc.FieldName("scopeA", "", "id")
	c := alloc.FieldName("scopeB", "", "id")

	assert.Equal(t, "id", a)
	assert.Equal(t, "id2", b)
	assert.Equal(t, "id", c)
}

func TestOperationName(t *testing.T) {
	alloc, _ := newTestAllocator(config.Default())

	assert.Equal(t, "ListDevices", alloc.OperationName("listDevices", "get", "/devices"))
	assert.Equal(t, "GetDevicesFiles", alloc.OperationName("", "get", "/devices/{id}/files"))
	assert.Equal(t, "PostDevices", alloc.OperationName("", "post", "/devices"))
}

func TestDeriveOperation_StripsPlaceholders(t *testing.T) {
	assert.Equal(t, "DeleteUsersSessions", DeriveOperation("DELETE", "/users/{user_id}/sessions/{id}"))
	assert.Equal(t, "Get", DeriveOperation("GET", "/"))
}

func TestEnumVariant(t *testing.T) {
	assert.Equal(t, "Active", EnumVariant("active"))
	assert.Equal(t, "InProgress", EnumVariant("in-progress"))
	assert.Equal(t, "True", EnumVariant(true))
	assert.Equal(t, "Value42", EnumVariant(float64(42)))
	assert.Equal(t, "ValueMinus1", EnumVariant(float64(-1)))
	assert.Equal(t, "Empty", EnumVariant(""))
}
