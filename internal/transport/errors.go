package transport

import "errors"

var errArity = errors.New("invalid input: wrong argument arity")
