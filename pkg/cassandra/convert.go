package cassandra

import (
	"math/big"
	"net"
	"reflect"
	"time"

	"github.com/gocql/gocql"
	inf "gopkg.in/inf.v0"

	"github.com/tablegauge/tablegauge/pkg/profile"
)

// resolveValue maps a native driver value onto the closed kind set. The
// driver yields typed scalars per CQL type; anything unrecognized resolves
// through reflection so estimation stays total across driver versions.
func resolveValue(v interface{}) profile.Value {
	switch x := v.(type) {
	case nil:
		return profile.Absent()
	case []byte:
		return profile.Bytes(x)
	case string:
		return profile.Text(x)
	case bool:
		return profile.Bool(x)
	case int:
		return profile.Int(int64(x))
	case int8:
		return profile.Int(int64(x))
	case int16:
		return profile.Int(int64(x))
	case int32:
		return profile.Int(int64(x))
	case int64:
		return profile.Int(x)
	case float32:
		return profile.Float(float64(x))
	case float64:
		return profile.Float(x)
	case *big.Int:
		if x == nil {
			return profile.Absent()
		}
		return profile.Scalar(x)
	case *inf.Dec:
		if x == nil {
			return profile.Absent()
		}
		return profile.Scalar(x)
	case time.Time:
		return profile.Scalar(x)
	case time.Duration:
		return profile.Scalar(x)
	case gocql.UUID:
		return profile.Scalar(x)
	case gocql.Duration:
		return profile.Scalar(x)
	case net.IP:
		// net.IP is a byte slice underneath; it renders as an address,
		// not as binary.
		return profile.Scalar(x)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return profile.Composite(v)
	}
	return profile.Scalar(v)
}
