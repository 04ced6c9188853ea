package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// sqliteStore implements Store over either the pool or an open transaction.
type sqliteStore struct {
	q sqlx.ExtContext
}

type sqliteRepo struct {
	*sqliteStore
	db *sqlx.DB
}

// NewSQLiteRepo returns the single-file backend. The schema must already exist.
func NewSQLiteRepo(db *sqlx.DB) FulfillmentRepository {
	return &sqliteRepo{sqliteStore: &sqliteStore{q: db}, db: db}
}

func (r *sqliteRepo) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqliteStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func sqliteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

// productRow flattens Product for explicit column mapping.
type productRow struct {
	ID                   uuid.UUID       `db:"id"`
	SKU                  string          `db:"sku"`
	Name                 string          `db:"name"`
	Category             string          `db:"category"`
	Status               string          `db:"status"`
	Condition            string          `db:"condition"`
	SellerID             string          `db:"seller_id"`
	Price                decimal.Decimal `db:"price"`
	CurrentLocationID    *uuid.UUID      `db:"current_location_id"`
	InspectionCompleted  bool            `db:"meta_inspection_completed"`
	PhotographyCompleted bool            `db:"meta_photography_completed"`
	DeliveryPlanID       *uuid.UUID      `db:"meta_delivery_plan_id"`
	Notes                string          `db:"meta_notes"`
	Version              int64           `db:"version"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
	CreatedBy            string          `db:"created_by"`
	UpdatedBy            string          `db:"updated_by"`
}

const productColumns = `id, sku, name, category, status, condition, seller_id, price, current_location_id,
	meta_inspection_completed, meta_photography_completed, meta_delivery_plan_id, meta_notes,
	version, created_at, updated_at, created_by, updated_by`

func (r productRow) toModel() model.Product {
	return model.Product{
		BaseModel: model.BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
		SKU:               r.SKU,
		Name:              r.Name,
		Category:          model.ProductCategory(r.Category),
		Status:            model.ProductStatus(r.Status),
		Condition:         model.ProductCondition(r.Condition),
		SellerID:          r.SellerID,
		Price:             r.Price,
		CurrentLocationID: r.CurrentLocationID,
		Metadata: model.ProductMetadata{
			InspectionCompleted:  r.InspectionCompleted,
			PhotographyCompleted: r.PhotographyCompleted,
			DeliveryPlanID:       r.DeliveryPlanID,
			Notes:                r.Notes,
		},
		Version: r.Version,
	}
}

func (s *sqliteStore) selectProducts(ctx context.Context, query string, args ...interface{}) ([]model.Product, error) {
	var rows []productRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, query, args...); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toModel())
	}
	return products, nil
}

func (s *sqliteStore) getProduct(ctx context.Context, query string, args ...interface{}) (*model.Product, error) {
	var row productRow
	if err := sqlx.GetContext(ctx, s.q, &row, query, args...); err != nil {
		return nil, err
	}
	p := row.toModel()
	return &p, nil
}

func (s *sqliteStore) CreateProduct(ctx context.Context, p *model.Product) error {
	p.Prepare(time.Now())
	if p.Version == 0 {
		p.Version = 1
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, p.Category, p.Status, p.Condition, p.SellerID, p.Price, p.CurrentLocationID,
		p.Metadata.InspectionCompleted, p.Metadata.PhotographyCompleted, p.Metadata.DeliveryPlanID, p.Metadata.Notes,
		p.Version, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), p.CreatedBy, p.UpdatedBy)
	return sqliteErr("create product", err)
}

func (s *sqliteStore) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return p, sqliteErr("find product", err)
}

func (s *sqliteStore) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	p, err := s.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	return p, sqliteErr("find product by sku", err)
}

func (s *sqliteStore) FindProductsBySKUSuffix(ctx context.Context, suffix string) ([]model.Product, error) {
	products, err := s.selectProducts(ctx, `SELECT `+productColumns+` FROM products
		WHERE sku LIKE ? ESCAPE '\' ORDER BY created_at ASC, rowid ASC`, "%"+escapeLike(suffix))
	return products, sqliteErr("find products by sku suffix", err)
}

func (s *sqliteStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1 = 1`
	var args []interface{}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(filter.Statuses)-1) + `)`
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.SellerID != "" {
		query += ` AND seller_id = ?`
		args = append(args, filter.SellerID)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	products, err := s.selectProducts(ctx, query, args...)
	return products, sqliteErr("list products", err)
}

func (s *sqliteStore) FindProductsByDeliveryPlan(ctx context.Context, planID uuid.UUID) ([]model.Product, error) {
	products, err := s.selectProducts(ctx, `SELECT `+productColumns+` FROM products
		WHERE meta_delivery_plan_id = ? ORDER BY created_at ASC, rowid ASC`, planID)
	return products, sqliteErr("find products by plan", err)
}

func (s *sqliteStore) SaveProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `UPDATE products SET
		sku = ?, name = ?, category = ?, status = ?, condition = ?, seller_id = ?, price = ?,
		current_location_id = ?, meta_inspection_completed = ?, meta_photography_completed = ?,
		meta_delivery_plan_id = ?, meta_notes = ?, updated_by = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		p.SKU, p.Name, p.Category, p.Status, p.Condition, p.SellerID, p.Price,
		p.CurrentLocationID, p.Metadata.InspectionCompleted, p.Metadata.PhotographyCompleted,
		p.Metadata.DeliveryPlanID, p.Metadata.Notes, p.UpdatedBy, now,
		p.ID, p.Version)
	if err != nil {
		return sqliteErr("save product", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqliteErr("save product", err)
	}
	if n == 0 {
		return ErrConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (s *sqliteStore) CountProductsByStatus(ctx context.Context) (map[model.ProductStatus]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		Total  int64  `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, s.q, &rows, `SELECT status, COUNT(*) AS total FROM products GROUP BY status`); err != nil {
		return nil, sqliteErr("count products by status", err)
	}
	counts := make(map[model.ProductStatus]int64, len(rows))
	for _, r := range rows {
		counts[model.ProductStatus(r.Status)] = r.Total
	}
	return counts, nil
}

const locationColumns = `id, code, name, zone, capacity, created_at, updated_at, created_by, updated_by`

func (s *sqliteStore) CreateLocation(ctx context.Context, l *model.Location) error {
	l.Prepare(time.Now())
	_, err := s.q.ExecContext(ctx, `INSERT INTO locations (`+locationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Code, l.Name, l.Zone, l.Capacity, l.CreatedAt.UTC(), l.UpdatedAt.UTC(), l.CreatedBy, l.UpdatedBy)
	return sqliteErr("create location", err)
}

func (s *sqliteStore) FindLocationByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var loc model.Location
	err := sqlx.GetContext(ctx, s.q, &loc, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	if err != nil {
		return nil, sqliteErr("find location", err)
	}
	return &loc, nil
}

func (s *sqliteStore) FindLocationByCode(ctx context.Context, code string) (*model.Location, error) {
	var loc model.Location
	err := sqlx.GetContext(ctx, s.q, &loc, `SELECT `+locationColumns+` FROM locations WHERE code = ?`, code)
	if err != nil {
		return nil, sqliteErr("find location by code", err)
	}
	return &loc, nil
}

// LockLocation is a plain read: SQLite serialises writers on the database.
func (s *sqliteStore) LockLocation(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	return s.FindLocationByID(ctx, id)
}

func (s *sqliteStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	locations := []model.Location{}
	err := sqlx.SelectContext(ctx, s.q, &locations, `SELECT `+locationColumns+` FROM locations ORDER BY code ASC`)
	return locations, sqliteErr("list locations", err)
}

func (s *sqliteStore) CountProductsAtLocation(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, s.q, &count, `SELECT COUNT(*) FROM products WHERE current_location_id = ?`, id)
	return count, sqliteErr("count products at location", err)
}

func (s *sqliteStore) CountProductsByLocation(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		LocationID uuid.UUID `db:"current_location_id"`
		Total      int64     `db:"total"`
	}
	err := sqlx.SelectContext(ctx, s.q, &rows, `SELECT current_location_id, COUNT(*) AS total
		FROM products WHERE current_location_id IS NOT NULL GROUP BY current_location_id`)
	if err != nil {
		return nil, sqliteErr("count products by location", err)
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.LocationID] = r.Total
	}
	return counts, nil
}

const movementColumns = `id, product_id, from_location_id, to_location_id, moved_by, notes, created_at`

func (s *sqliteStore) CreateMovement(ctx context.Context, m *model.ProductMovement) error {
	prepareMovement(m)
	_, err := s.q.ExecContext(ctx, `INSERT INTO product_movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.FromLocationID, m.ToLocationID, m.MovedBy, m.Notes, m.CreatedAt.UTC())
	return sqliteErr("create movement", err)
}

func (s *sqliteStore) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error) {
	movements := []model.ProductMovement{}
	err := sqlx.SelectContext(ctx, s.q, &movements, `SELECT `+movementColumns+` FROM product_movements
		WHERE product_id = ? ORDER BY created_at ASC, rowid ASC`, productID)
	return movements, sqliteErr("list movements", err)
}

func (s *sqliteStore) ListMovementsSince(ctx context.Context, since time.Time) ([]model.ProductMovement, error) {
	movements := []model.ProductMovement{}
	err := sqlx.SelectContext(ctx, s.q, &movements, `SELECT `+movementColumns+` FROM product_movements
		WHERE created_at >= ? ORDER BY created_at ASC, rowid ASC`, since.UTC())
	return movements, sqliteErr("list movements since", err)
}

const activityColumns = `id, type, description, actor_id, product_id, order_id, metadata, created_at`

func (s *sqliteStore) AppendActivity(ctx context.Context, r *model.ActivityRecord) error {
	prepareActivity(r)
	_, err := s.q.ExecContext(ctx, `INSERT INTO activity_records (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Description, r.ActorID, r.ProductID, r.OrderID, r.Metadata, r.CreatedAt.UTC())
	return sqliteErr("append activity", err)
}

func (s *sqliteStore) ListActivity(ctx context.Context, subjectID uuid.UUID) ([]model.ActivityRecord, error) {
	records := []model.ActivityRecord{}
	err := sqlx.SelectContext(ctx, s.q, &records, `SELECT `+activityColumns+` FROM activity_records
		WHERE product_id = ? OR order_id = ? ORDER BY created_at ASC, rowid ASC`, subjectID, subjectID)
	return records, sqliteErr("list activity", err)
}

const pickingTaskColumns = `id, order_id, customer_name, status, priority, assignee, due_date, created_at, updated_at, created_by, updated_by`
const pickingItemColumns = `id, task_id, product_id, product_name, sku, location_code, quantity, picked_quantity, status`

func (s *sqliteStore) CreatePickingTask(ctx context.Context, t *model.PickingTask) error {
	preparePickingTask(t)
	_, err := s.q.ExecContext(ctx, `INSERT INTO picking_tasks (`+pickingTaskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.CustomerName, t.Status, t.Priority, t.Assignee, t.DueDate.UTC(),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(), t.CreatedBy, t.UpdatedBy)
	if err != nil {
		return sqliteErr("create picking task", err)
	}
	for _, it := range t.Items {
		_, err := s.q.ExecContext(ctx, `INSERT INTO picking_items (`+pickingItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.TaskID, it.ProductID, it.ProductName, it.SKU, it.LocationCode, it.Quantity, it.PickedQuantity, it.Status)
		if err != nil {
			return sqliteErr("create picking item", err)
		}
	}
	return nil
}

func (s *sqliteStore) ListPickingTasks(ctx context.Context, status model.PickingStatus) ([]model.PickingTask, error) {
	query := `SELECT ` + pickingTaskColumns + ` FROM picking_tasks`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY due_date ASC, rowid ASC`

	tasks := []model.PickingTask{}
	if err := sqlx.SelectContext(ctx, s.q, &tasks, query, args...); err != nil {
		return nil, sqliteErr("list picking tasks", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]uuid.UUID, len(tasks))
	byID := make(map[uuid.UUID]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		byID[t.ID] = i
		tasks[i].Items = []model.PickingItem{}
	}
	itemQuery, itemArgs, err := sqlx.In(`SELECT `+pickingItemColumns+` FROM picking_items WHERE task_id IN (?) ORDER BY rowid ASC`, ids)
	if err != nil {
		return nil, sqliteErr("list picking items", err)
	}
	var items []model.PickingItem
	if err := sqlx.SelectContext(ctx, s.q, &items, s.q.Rebind(itemQuery), itemArgs...); err != nil {
		return nil, sqliteErr("list picking items", err)
	}
	for _, it := range items {
		i := byID[it.TaskID]
		tasks[i].Items = append(tasks[i].Items, it)
	}
	return tasks, nil
}

func (s *sqliteStore) AssignedProductIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, s.q, &ids, `SELECT DISTINCT product_id FROM picking_items`); err != nil {
		return nil, sqliteErr("assigned product ids", err)
	}
	assigned := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	return assigned, nil
}

const orderColumns = `id, order_number, customer_name, status, created_at, updated_at, created_by, updated_by`
const orderItemColumns = `id, order_id, product_id, quantity, price`

func (s *sqliteStore) CreateOrder(ctx context.Context, o *model.Order) error {
	prepareOrder(o)
	_, err := s.q.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.CustomerName, o.Status, o.CreatedAt.UTC(), o.UpdatedAt.UTC(), o.CreatedBy, o.UpdatedBy)
	if err != nil {
		return sqliteErr("create order", err)
	}
	for _, it := range o.Items {
		_, err := s.q.ExecContext(ctx, `INSERT INTO order_items (`+orderItemColumns+`) VALUES (?, ?, ?, ?, ?)`,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price)
		if err != nil {
			return sqliteErr("create order item", err)
		}
	}
	return nil
}

func (s *sqliteStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := sqlx.GetContext(ctx, s.q, &order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, sqliteErr("find order", err)
	}
	order.Items = []model.OrderItem{}
	if err := sqlx.SelectContext(ctx, s.q, &order.Items, `SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = ? ORDER BY rowid ASC`, id); err != nil {
		return nil, sqliteErr("find order items", err)
	}
	return &order, nil
}

func (s *sqliteStore) FindProductOrders(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductOrder, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT oi.product_id, o.id AS order_id, o.order_number, o.customer_name, o.status
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id IN (?) ORDER BY o.created_at ASC, o.rowid ASC`, productIDs)
	if err != nil {
		return nil, sqliteErr("find product orders", err)
	}
	var links []model.ProductOrder
	err = sqlx.SelectContext(ctx, s.q, &links, s.q.Rebind(query), args...)
	return links, sqliteErr("find product orders", err)
}

const planColumns = `id, plan_number, seller_id, status, notes, created_at, updated_at, created_by, updated_by`
const planItemColumns = `id, plan_id, name, quantity, product_id`

func (s *sqliteStore) CreateDeliveryPlan(ctx context.Context, p *model.DeliveryPlan) error {
	prepareDeliveryPlan(p)
	_, err := s.q.ExecContext(ctx, `INSERT INTO delivery_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PlanNumber, p.SellerID, p.Status, p.Notes, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), p.CreatedBy, p.UpdatedBy)
	if err != nil {
		return sqliteErr("create delivery plan", err)
	}
	for _, it := range p.Items {
		_, err := s.q.ExecContext(ctx, `INSERT INTO delivery_plan_items (`+planItemColumns+`) VALUES (?, ?, ?, ?, ?)`,
			it.ID, it.PlanID, it.Name, it.Quantity, it.ProductID)
		if err != nil {
			return sqliteErr("create delivery plan item", err)
		}
	}
	return nil
}

func (s *sqliteStore) getPlan(ctx context.Context, where string, arg interface{}) (*model.DeliveryPlan, error) {
	var plan model.DeliveryPlan
	if err := sqlx.GetContext(ctx, s.q, &plan, `SELECT `+planColumns+` FROM delivery_plans WHERE `+where, arg); err != nil {
		return nil, err
	}
	plan.Items = []model.DeliveryPlanItem{}
	if err := sqlx.SelectContext(ctx, s.q, &plan.Items, `SELECT `+planItemColumns+` FROM delivery_plan_items
		WHERE plan_id = ? ORDER BY rowid ASC`, plan.ID); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *sqliteStore) FindDeliveryPlanByID(ctx context.Context, id uuid.UUID) (*model.DeliveryPlan, error) {
	plan, err := s.getPlan(ctx, `id = ?`, id)
	return plan, sqliteErr("find delivery plan", err)
}

func (s *sqliteStore) FindDeliveryPlanByNumber(ctx context.Context, number string) (*model.DeliveryPlan, error) {
	plan, err := s.getPlan(ctx, `plan_number = ?`, number)
	return plan, sqliteErr("find delivery plan by number", err)
}

func (s *sqliteStore) UpdateDeliveryPlanStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryPlanStatus, notes, updatedBy string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE delivery_plans SET status = ?, notes = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`, to, notes, updatedBy, time.Now().UTC(), id, from)
	if err != nil {
		return sqliteErr("update delivery plan status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqliteErr("update delivery plan status", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
