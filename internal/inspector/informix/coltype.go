package informix

import (
	"strconv"
	"strings"

	"github.com/koustreak/schemascope/internal/inspector"
)

// syscolumns.coltype flags
const (
	notNullFlag = 0x100
	baseMask    = 0xFF
)

// syscolumns.coltype base codes
const (
	typeChar       = 0
	typeSmallint   = 1
	typeInteger    = 2
	typeFloat      = 3
	typeSmallfloat = 4
	typeDecimal    = 5
	typeSerial     = 6
	typeDate       = 7
	typeMoney      = 8
	typeDatetime   = 10
	typeByte       = 11
	typeText       = 12
	typeVarchar    = 13
	typeInterval   = 14
	typeNchar      = 15
	typeNvarchar   = 16
	typeInt8       = 17
	typeSerial8    = 18
	typeSet        = 19
	typeMultiset   = 20
	typeList       = 21
	typeRow        = 22
	typeVarOpaque  = 40
	typeFixOpaque  = 41
	typeLvarchar   = 43
	typeBoolean    = 45
	typeBigint     = 52
	typeBigserial  = 53
)

var baseNames = map[int]string{
	typeChar:       "char",
	typeSmallint:   "smallint",
	typeInteger:    "integer",
	typeFloat:      "float",
	typeSmallfloat: "smallfloat",
	typeDecimal:    "decimal",
	typeSerial:     "serial",
	typeDate:       "date",
	typeMoney:      "money",
	typeDatetime:   "datetime",
	typeByte:       "byte",
	typeText:       "text",
	typeVarchar:    "varchar",
	typeInterval:   "interval",
	typeNchar:      "nchar",
	typeNvarchar:   "nvarchar",
	typeInt8:       "int8",
	typeSerial8:    "serial8",
	typeSet:        "set",
	typeMultiset:   "multiset",
	typeList:       "list",
	typeRow:        "row",
	typeLvarchar:   "lvarchar",
	typeBoolean:    "boolean",
	typeBigint:     "bigint",
	typeBigserial:  "bigserial",
}

// colType is the decoded form of a syscolumns row.
type colType struct {
	dataType      string
	nullable      bool
	autoIncrement bool
	character     bool
	maxLength     *int64
	precision     *int64
	scale         *int64
}

// decodeColType interprets coltype/collength. extName is the sysxtdtypes
// name for opaque types and may be empty otherwise. ok is false for codes
// with no mapping.
func decodeColType(coltype, collength int64, extName string) (colType, bool) {
	base := int(coltype & baseMask)
	ct := colType{nullable: coltype&notNullFlag == 0}

	switch base {
	case typeVarOpaque, typeFixOpaque:
		name := strings.ToLower(strings.TrimSpace(extName))
		if name == "" {
			return ct, false
		}
		ct.dataType = inspector.NormalizeDataType(name)
		ct.character = name == "lvarchar"
		return ct, true
	}

	name, ok := baseNames[base]
	if !ok {
		return ct, false
	}
	ct.dataType = name

	switch base {
	case typeChar, typeNchar, typeLvarchar:
		ct.character = true
		ct.maxLength = inspector.Int64Ptr(collength)
	case typeVarchar, typeNvarchar:
		// collength = min_space * 256 + max_size
		ct.character = true
		ct.maxLength = inspector.Int64Ptr(collength % 256)
	case typeDecimal, typeMoney:
		ct.precision = inspector.Int64Ptr(collength / 256)
		// scale 255 marks a floating-point decimal
		if s := collength % 256; s != 255 {
			ct.scale = inspector.Int64Ptr(s)
		}
	case typeSmallint:
		ct.precision, ct.scale = inspector.Int64Ptr(5), inspector.Int64Ptr(0)
	case typeInteger, typeSerial:
		ct.precision, ct.scale = inspector.Int64Ptr(10), inspector.Int64Ptr(0)
	case typeInt8, typeSerial8, typeBigint, typeBigserial:
		ct.precision, ct.scale = inspector.Int64Ptr(19), inspector.Int64Ptr(0)
	}

	switch base {
	case typeSerial, typeSerial8, typeBigserial:
		ct.autoIncrement = true
	}
	return ct, true
}

// rawTypeName renders the catalog encoding for error messages.
func rawTypeName(coltype, collength int64, extName string) string {
	s := "coltype=" + strconv.FormatInt(coltype, 10) + " collength=" + strconv.FormatInt(collength, 10)
	if extName != "" {
		s += " extended=" + strings.TrimSpace(extName)
	}
	return s
}

// decodeDefault turns a sysdefaults row into the raw default expression
// handed to ParseDefaultValue. kind is sysdefaults.type.
func decodeDefault(kind, value *string, character bool) *string {
	if kind == nil {
		return nil
	}
	switch strings.TrimSpace(*kind) {
	case "L":
		if value == nil {
			return nil
		}
		v := strings.TrimRight(*value, " ")
		if !character {
			// non-character literals are stored as "<length> <value>"
			if i := strings.IndexByte(v, ' '); i > 0 && isDigits(v[:i]) {
				v = v[i+1:]
			}
		}
		return &v
	case "C":
		return inspector.StrPtr("CURRENT_TIMESTAMP")
	case "T":
		return inspector.StrPtr("TODAY")
	case "U":
		return inspector.StrPtr("USER")
	case "S":
		return inspector.StrPtr("DBSERVERNAME")
	case "N":
		return inspector.StrPtr("NULL")
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
