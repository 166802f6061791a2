package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// WireTimeLayout es el formato de fecha/hora del árbol persistido: hora local,
// sin offset de zona horaria. Es un contrato del borde de persistencia: los
// índices ordenan lexicográficamente sobre este formato, así que los límites
// de las consultas por rango deben formatearse exactamente igual. Serializar
// con cualquier otra representación corrompe el orden del índice.
const WireTimeLayout = "2006-01-02T15:04:05"

// FormatWireTime serializa un instante al formato del árbol persistido
func FormatWireTime(t time.Time) string {
	return t.Format(WireTimeLayout)
}

// ParseWireTime interpreta una fecha del árbol persistido como hora local
func ParseWireTime(s string) (time.Time, error) {
	return time.ParseInLocation(WireTimeLayout, s, time.Local)
}

// memberSep separa el valor indexado de la clave del hijo dentro del índice.
// NUL no aparece en valores ni en claves generadas.
const memberSep = "\x00"

// Node es la representación aplanada de un nodo del árbol: cada clave es la
// ruta relativa de un campo (por ejemplo "payments/abc/amount") y cada valor
// un escalar en texto. Un Node vacío o nil significa ausencia.
type Node map[string]string

// Keyed es un nodo hijo junto con su clave dentro de la colección
type Keyed struct {
	Key  string
	Node Node
}

// IndexRule declara un índice secundario sobre los hijos de una ruta padre.
// Pattern se compara segmento a segmento contra la ruta padre; "*" iguala un
// segmento.
type IndexRule struct {
	Pattern string
	Field   string
}

// DefaultIndexRules retorna los índices que usa la aplicación
func DefaultIndexRules() []IndexRule {
	return []IndexRule{
		{Pattern: "visits/*", Field: "date"},
		{Pattern: "bills/*", Field: "date"},
		{Pattern: "bills/*/*", Field: "date"},
		{Pattern: "users", Field: "email"},
	}
}

// TreeStore implementa un almacén de árbol direccionado por rutas sobre Redis:
// un hash por nodo, campos hijos aplanados dentro del hash e índices
// secundarios como sorted sets por colección. Soporta lecturas y escrituras
// puntuales, actualizaciones parciales (campo a nil = borrar), escrituras
// atómicas multi-ruta y consultas por rango ordenadas por un campo indexado.
type TreeStore struct {
	redis  *Redis
	logger *logrus.Logger
	rules  []IndexRule
}

// NewTreeStore crea una nueva instancia del almacén
func NewTreeStore(r *Redis, logger *logrus.Logger, rules ...IndexRule) *TreeStore {
	return &TreeStore{
		redis:  r,
		logger: logger,
		rules:  rules,
	}
}

// NewKey genera una clave única para un nuevo hijo
func (s *TreeStore) NewKey() string {
	return uuid.NewString()
}

const opTimeout = 5 * time.Second

func nodeKey(path string) string {
	return "tree:" + path
}

func indexKeyFor(parent, field string) string {
	return "idx:" + parent + ":" + field
}

// splitPath separa una ruta en su padre y el último segmento
func splitPath(path string) (parent, child string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ruleFor retorna la regla de índice que aplica a los hijos de parent, si hay
func (s *TreeStore) ruleFor(parent string) *IndexRule {
	segments := strings.Split(parent, "/")
	for i := range s.rules {
		pattern := strings.Split(s.rules[i].Pattern, "/")
		if len(pattern) != len(segments) {
			continue
		}
		match := true
		for j := range pattern {
			if pattern[j] != "*" && pattern[j] != segments[j] {
				match = false
				break
			}
		}
		if match {
			return &s.rules[i]
		}
	}
	return nil
}

// Get lee un nodo completo. Retorna (nil, nil) si el nodo no existe.
func (s *TreeStore) Get(ctx context.Context, path string) (Node, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	fields, err := s.redis.HGetAll(ctx, nodeKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading node %s: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return Node(fields), nil
}

// Set reemplaza un nodo completo, manteniendo los índices de su colección
func (s *TreeStore) Set(ctx context.Context, path string, node Node) error {
	return s.MultiSet(ctx, map[string]Node{path: node})
}

type indexOp struct {
	key       string
	oldMember string
	newMember string
}

// indexOpFor calcula el ajuste de índice para una escritura sobre path.
// Lee el valor indexado vigente antes de la transacción; la ventana entre esa
// lectura y el commit tiene la misma semántica de último-escritor-gana que el
// resto del almacén.
func (s *TreeStore) indexOpFor(ctx context.Context, path string, newValue *string) (*indexOp, error) {
	parent, child := splitPath(path)
	rule := s.ruleFor(parent)
	if rule == nil {
		return nil, nil
	}

	op := &indexOp{key: indexKeyFor(parent, rule.Field)}

	old, err := s.redis.HGet(ctx, nodeKey(path), rule.Field).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("error reading indexed field of %s: %w", path, err)
	}
	if err == nil {
		op.oldMember = old + memberSep + child
	}
	if newValue != nil {
		op.newMember = *newValue + memberSep + child
	}
	return op, nil
}

// MultiSet escribe varios nodos en una única transacción: o todos los nodos
// quedan visibles a la vez o ninguno lo hace
func (s *TreeStore) MultiSet(ctx context.Context, writes map[string]Node) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var ops []indexOp
	for path, node := range writes {
		parent, _ := splitPath(path)
		rule := s.ruleFor(parent)
		var newValue *string
		if rule != nil && node != nil {
			if v, ok := node[rule.Field]; ok {
				newValue = &v
			}
		}
		op, err := s.indexOpFor(ctx, path, newValue)
		if err != nil {
			return err
		}
		if op != nil {
			ops = append(ops, *op)
		}
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for path, node := range writes {
			key := nodeKey(path)
			pipe.Del(ctx, key)
			if len(node) > 0 {
				pipe.HSet(ctx, key, map[string]string(node))
			}
		}
		for _, op := range ops {
			if op.oldMember != "" {
				pipe.ZRem(ctx, op.key, op.oldMember)
			}
			if op.newMember != "" {
				pipe.ZAdd(ctx, op.key, redis.Z{Member: op.newMember})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error writing nodes: %w", err)
	}
	return nil
}

// Update aplica una actualización parcial sobre un nodo: los campos con valor
// se escriben, los campos con nil se eliminan (ausencia-como-borrado)
func (s *TreeStore) Update(ctx context.Context, path string, fields map[string]*string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var op *indexOp
	parent, _ := splitPath(path)
	if rule := s.ruleFor(parent); rule != nil {
		if newValue, touched := fields[rule.Field]; touched {
			var err error
			op, err = s.indexOpFor(ctx, path, newValue)
			if err != nil {
				return err
			}
		}
	}

	sets := make(map[string]string)
	var dels []string
	for field, value := range fields {
		if value == nil {
			dels = append(dels, field)
		} else {
			sets[field] = *value
		}
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := nodeKey(path)
		if len(sets) > 0 {
			pipe.HSet(ctx, key, sets)
		}
		if len(dels) > 0 {
			pipe.HDel(ctx, key, dels...)
		}
		if op != nil {
			if op.oldMember != "" {
				pipe.ZRem(ctx, op.key, op.oldMember)
			}
			if op.newMember != "" {
				pipe.ZAdd(ctx, op.key, redis.Z{Member: op.newMember})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error updating node %s: %w", path, err)
	}
	return nil
}

// Delete elimina un nodo y su subárbol. Es incondicional e irreversible.
func (s *TreeStore) Delete(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	op, err := s.indexOpFor(ctx, path, nil)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, nodeKey(path))
		if op != nil && op.oldMember != "" {
			pipe.ZRem(ctx, op.key, op.oldMember)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting node %s: %w", path, err)
	}
	return nil
}

// QueryRange retorna los hijos de root ordenados ascendentemente por el campo
// indexado, con límite inferior inclusivo y superior exclusivo. Límites
// vacíos significan sin límite. El campo debe tener una regla de índice.
func (s *TreeStore) QueryRange(ctx context.Context, root, field, startAt, endBefore string) ([]Keyed, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	min, max := "-", "+"
	if startAt != "" {
		min = "[" + startAt
	}
	if endBefore != "" {
		max = "(" + endBefore
	}
	return s.queryIndex(ctx, root, field, min, max)
}

// QueryEqual retorna los hijos de root cuyo campo indexado es exactamente value
func (s *TreeStore) QueryEqual(ctx context.Context, root, field, value string) ([]Keyed, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	min := "[" + value + memberSep
	max := "[" + value + memberSep + "\xff"
	return s.queryIndex(ctx, root, field, min, max)
}

func (s *TreeStore) queryIndex(ctx context.Context, root, field, min, max string) ([]Keyed, error) {
	members, err := s.redis.ZRangeByLex(ctx, indexKeyFor(root, field), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error querying index of %s by %s: %w", root, field, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		i := strings.LastIndex(member, memberSep)
		if i < 0 {
			s.logger.WithField("member", member).Warn("Malformed index member, skipping")
			continue
		}
		keys = append(keys, member[i+1:])
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, nodeKey(root+"/"+key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("error reading children of %s: %w", root, err)
	}

	results := make([]Keyed, 0, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			// entrada de índice sin nodo: carrera con un borrado concurrente
			continue
		}
		results = append(results, Keyed{Key: keys[i], Node: Node(fields)})
	}
	return results, nil
}
